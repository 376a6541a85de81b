package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alrightylabs/lutranscript/core"
	"github.com/alrightylabs/lutranscript/core/dashboard"
	"github.com/alrightylabs/lutranscript/core/lms"
	"github.com/alrightylabs/lutranscript/services/learnupon"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	isTerminalFunc   = term.IsTerminal   // mockable

	errNoPassword = errors.New("LEARNUPON_PASSWORD is not set and no terminal to prompt for it")
)

type commandLine struct {
	conf     *core.Config
	logger   core.Logger
	validate *validator.Validate
	in       *os.File
	out      io.Writer

	// flags
	output   string
	direct   bool
	search   string
	page     int
	pageSize int
}

func newCommandLine(conf *core.Config, logger core.Logger, out io.Writer) *commandLine {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	return &commandLine{
		conf:     conf,
		logger:   logger,
		validate: validate,
		in:       os.Stdin,
		out:      out,
	}
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lutranscript",
		Short:         "Browse LearnUpon groups and course transcripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return checkOutput(cli.output)
		},
	}
	root.SetOut(cli.out)
	root.PersistentFlags().StringVarP(&cli.output, "output", "o", outputTable, "output format: table, json or yaml")
	root.PersistentFlags().BoolVar(&cli.direct, "direct", !cli.conf.Proxy.Enabled,
		"call LearnUpon directly with the configured credentials instead of going through the gateway")

	groups := &cobra.Command{
		Use:   "groups",
		Short: "List groups, optionally filtered by name, description or id",
		Args:  cobra.NoArgs,
		RunE:  cli.groups,
	}
	groups.Flags().StringVarP(&cli.search, "search", "s", "", "filter term")
	groups.Flags().IntVarP(&cli.page, "page", "p", 1, "page to show, starting at 1")
	groups.Flags().IntVar(&cli.pageSize, "page-size", cli.conf.Dashboard.PageSize, "groups per page")

	group := &cobra.Command{
		Use:   "group <id>",
		Short: "Show a group's details",
		Args:  cobra.ExactArgs(1),
		RunE:  cli.group,
	}

	members := &cobra.Command{
		Use:   "members <id>",
		Short: "List a group's members",
		Args:  cobra.ExactArgs(1),
		RunE:  cli.members,
	}

	tr := &cobra.Command{
		Use:   "transcript",
		Short: "Show a user's or a group's course transcript",
	}
	tr.AddCommand(
		&cobra.Command{
			Use:   "user <email>",
			Short: "Reconcile a user's enrollments and completions",
			Args:  cobra.ExactArgs(1),
			RunE:  cli.userTranscript,
		},
		&cobra.Command{
			Use:   "group <name>",
			Short: "Gather the completions of the first members of the group matching name",
			Args:  cobra.ExactArgs(1),
			RunE:  cli.groupTranscript,
		},
	)

	root.AddCommand(groups, group, members, tr)
	return root
}

func (cli *commandLine) run(args []string) error {
	return cli.runContext(context.Background(), args)
}

func (cli *commandLine) runContext(ctx context.Context, args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// dashboard builds the dashboard for the selected mode. In direct mode the password is prompted
// for when it is not configured.
func (cli *commandLine) dashboard() (*dashboard.Dashboard, error) {
	settings := dashboard.SettingsFromConfig(cli.conf)
	if cli.direct {
		settings.Mode = core.ModeDirect
		if cli.conf.LearnUpon.Password == "" {
			pwd, err := cli.promptPassword()
			if err != nil {
				return nil, err
			}
			cli.conf.LearnUpon.Password = pwd
		}
		if err := cli.validate.Struct(cli.conf.LearnUpon); err != nil {
			return nil, err
		}
	} else {
		settings.Mode = core.ModeProxy
	}
	if err := settings.Validate(cli.validate); err != nil {
		return nil, err
	}

	pageSize := cli.pageSize
	if pageSize < 1 {
		pageSize = cli.conf.Dashboard.PageSize
	}
	return dashboard.New(dashboard.Options{
		Settings: settings,
		NewSource: func(s dashboard.Settings) dashboard.Source {
			opts := learnupon.OptionsFromConfig(cli.conf)
			opts.Mode = s.Mode
			opts.ProxyURL = s.ProxyURL
			return learnupon.NewClient(opts)
		},
		PageSize:   pageSize,
		MaxMembers: cli.conf.Dashboard.MaxGroupMembers,
		Logger:     cli.logger,
		Validate:   cli.validate,
	}), nil
}

func (cli *commandLine) promptPassword() (string, error) {
	fd := int(cli.in.Fd())
	if !isTerminalFunc(fd) {
		return "", errNoPassword
	}
	fmt.Fprintf(cli.out, "LearnUpon password for %s: ", cli.conf.LearnUpon.Username)
	pwd, err := readPasswordFunc(fd)
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errNoPassword
	}
	return string(pwd), nil
}

// Commands

func (cli *commandLine) groups(cmd *cobra.Command, _ []string) error {
	dash, err := cli.dashboard()
	if err != nil {
		return err
	}
	if _, err = dash.LoadGroups(cmd.Context()); err != nil {
		return err
	}
	return cli.render(dash.Groups(cli.search, cli.page))
}

func (cli *commandLine) group(cmd *cobra.Command, args []string) error {
	dash, err := cli.dashboard()
	if err != nil {
		return err
	}
	g, err := dash.GroupDetails(cmd.Context(), lms.ID(core.CleanString(args[0])))
	if err != nil {
		return err
	}
	return cli.render(g)
}

func (cli *commandLine) members(cmd *cobra.Command, args []string) error {
	dash, err := cli.dashboard()
	if err != nil {
		return err
	}
	members, err := dash.GroupMembers(cmd.Context(), lms.ID(core.CleanString(args[0])))
	if err != nil {
		return err
	}
	return cli.render(members)
}

func (cli *commandLine) userTranscript(cmd *cobra.Command, args []string) error {
	dash, err := cli.dashboard()
	if err != nil {
		return err
	}
	ut, err := dash.LoadUserTranscript(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return cli.render(ut.Report())
}

func (cli *commandLine) groupTranscript(cmd *cobra.Command, args []string) error {
	dash, err := cli.dashboard()
	if err != nil {
		return err
	}
	gt, err := dash.LoadGroupTranscript(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return cli.render(gt.Report())
}
