package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/sboehler/folio/lib/server"
)

// CreateServeCommand creates the command.
func CreateServeCommand() *cobra.Command {
	var r serveRunner
	c := &cobra.Command{
		Use:   "serve <config>",
		Short: "serve the stored results",
		Long:  `Serve the runs stored in the results database as a read-only JSON API.`,

		Args: cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),

		Run: r.run,
	}
	r.setupFlags(c)
	return c
}

type serveRunner struct {
	commonFlags

	listen string
}

func (r *serveRunner) setupFlags(cmd *cobra.Command) {
	r.commonFlags.logging.Setup(cmd)
	cmd.Flags().StringVarP(&r.listen, "listen", "l", "", "listen address, overrides the configuration")
}

func (r *serveRunner) run(cmd *cobra.Command, args []string) {
	if err := r.execute(cmd, args); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func (r *serveRunner) execute(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	env, err := newEnvironment(cmd, args[0], r.commonFlags)
	if err != nil {
		return err
	}
	db, err := openStore(ctx, env.cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()
	addr := r.listen
	if addr == "" {
		addr = env.cfg.Server.Listen
	}
	return server.New(db, env.log).ListenAndServe(ctx, addr)
}
