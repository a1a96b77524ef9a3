package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	dterrors "github.com/rileyhilliard/diagterm/internal/errors"
	"github.com/rileyhilliard/diagterm/internal/permission"
	"github.com/rileyhilliard/diagterm/internal/ui"
	"github.com/spf13/cobra"
)

type grantOptions struct {
	Level       string
	Yes         bool
	Acknowledge bool
}

// consentDecision is what the user answered in the consent form.
type consentDecision struct {
	Grant        bool
	Acknowledged bool
}

// Replaced in tests.
var (
	promptConsent   = huhConsent
	stdinIsTerminal = func() bool { return isTerminal(os.Stdin) }
)

func newGrantCmd(a *app) *cobra.Command {
	var opts grantOptions
	cmd := &cobra.Command{
		Use:   "grant <readonly|execute>",
		Short: "Grant a permission for the saved backend",
		Long: `Review what a permission allows and grant it for the saved backend.

The consent prompt lists everything the permission unlocks. Execute is high
risk and needs an explicit acknowledgment before it can be granted.

Examples:
  diagterm grant readonly
  diagterm grant execute
  diagterm grant execute --yes --acknowledge`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"readonly", "execute"},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Level = args[0]
			return grantCommand(cmd.Context(), a, cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "grant without prompting")
	cmd.Flags().BoolVar(&opts.Acknowledge, "acknowledge", false, "acknowledge the risk of a high-risk permission")
	return cmd
}

func grantCommand(ctx context.Context, a *app, out io.Writer, opts grantOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return err
	}

	sess := a.newSession(false)
	defer sess.Close()

	state, err := a.restore(ctx, sess)
	if err != nil {
		return err
	}
	if state.Has(level) {
		a.log.Debug("%s already granted for %s", level, state.BackendURL)
		return writeState(out, a, state)
	}

	req, err := sess.RequestPermission(level)
	if err != nil {
		return err
	}

	decision := consentDecision{Grant: opts.Yes, Acknowledged: opts.Acknowledge}
	if !opts.Yes {
		if MachineMode() || !stdinIsTerminal() {
			sess.Deny()
			return dterrors.New(dterrors.ErrPermission,
				"Granting "+req.Name+" needs confirmation",
				"Run interactively, or pass --yes"+ackHint(req))
		}
		decision, err = promptConsent(req)
		if err != nil {
			sess.Deny()
			return dterrors.WrapWithCode(err, dterrors.ErrPermission,
				"Consent prompt failed", "Run again, or pass --yes"+ackHint(req))
		}
	}

	if !decision.Grant {
		sess.Deny()
		if !MachineMode() {
			ui.PrintWarning(req.Name + " not granted")
		}
		return nil
	}

	if err := sess.Acknowledge(decision.Acknowledged); err != nil {
		return err
	}
	if !req.RequiresAcknowledgment() || decision.Acknowledged {
		if _, err := sess.Grant(); err != nil {
			return dterrors.WrapWithCode(err, dterrors.ErrStorage,
				"Could not save the grant", "Check permissions on "+a.store.Path())
		}
	} else {
		sess.Deny()
		return dterrors.New(dterrors.ErrPermission,
			req.Name+" was not acknowledged",
			req.Warning+" Pass --acknowledge if you accept this.")
	}

	a.log.Info("granted %s for %s", level, state.BackendURL)
	if !MachineMode() {
		ui.PrintSuccess(req.Name + " granted")
	}
	return writeState(out, a, sess.State())
}

func ackHint(req permission.Request) string {
	if req.RequiresAcknowledgment() {
		return " --acknowledge"
	}
	return ""
}

// consentText renders the body of a consent prompt.
func consentText(req permission.Request) string {
	var b strings.Builder
	b.WriteString(req.Description)
	b.WriteString("\n\nThis allows diagterm to:\n")
	for _, c := range req.Capabilities {
		fmt.Fprintf(&b, "  %s %s\n", ui.SymbolBullet, c)
	}
	fmt.Fprintf(&b, "\nRisk: %s", req.Risk)
	return b.String()
}

// huhConsent shows the consent form. High-risk levels get an acknowledgment
// checkbox that must be ticked for the grant to count.
func huhConsent(req permission.Request) (consentDecision, error) {
	var d consentDecision

	fields := []huh.Field{
		huh.NewNote().
			Title("Grant " + req.Name + "?").
			Description(consentText(req)),
	}
	if req.RequiresAcknowledgment() {
		fields = append(fields,
			huh.NewConfirm().
				Title(ui.SymbolWarning+" "+req.Warning).
				Affirmative("I understand").
				Negative("Cancel").
				Value(&d.Acknowledged))
	}
	fields = append(fields,
		huh.NewConfirm().
			Title("Grant "+req.Name+"?").
			Affirmative("Grant").
			Negative("Deny").
			Value(&d.Grant))

	form := huh.NewForm(huh.NewGroup(fields...))
	if err := form.Run(); err != nil {
		return consentDecision{}, err
	}
	return d, nil
}
