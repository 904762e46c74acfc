package main

import (
	"fmt"
	"github.com/jxo-me/talpa/cmd/talpa/cliutil"
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/core/credential"
	xcredential "github.com/jxo-me/talpa/sdk/credential"
	"github.com/jxo-me/talpa/sdk/route"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"strings"
)

func commands(bInfo *cliutil.BuildInfo) []*cli.Command {
	return []*cli.Command{
		{
			Name:   "setup",
			Usage:  "Store the Cloudflare account, zone, tunnel and API token",
			Action: cliutil.Action(setupAction),
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "account-id", EnvVars: []string{xcredential.EnvName(consts.KeyAccountID)}, Usage: "Cloudflare account id"},
				&cli.StringFlag{Name: "zone-id", EnvVars: []string{xcredential.EnvName(consts.KeyZoneID)}, Usage: "id of the zone routes are created in"},
				&cli.StringFlag{Name: "tunnel-id", EnvVars: []string{xcredential.EnvName(consts.KeyTunnelID)}, Usage: "UUID of the remotely-managed tunnel"},
				&cli.StringFlag{Name: "api-token", EnvVars: []string{xcredential.EnvName(consts.KeyAPIToken)}, Usage: "API token with Tunnel:Edit and DNS:Edit"},
				&cli.BoolFlag{Name: "skip-verify", Usage: "store the values without calling the API"},
			},
			Description: `Writes the four values to the configured credential store
(keychain on macOS, a 0600 file elsewhere) and checks that the token can read
the zone and the tunnel configuration.`,
		},
		{
			Name:      "dig",
			Usage:     "Route a hostname to a local service",
			ArgsUsage: "<hostname> <service>",
			Action:    cliutil.Action(digAction),
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "force", Usage: "replace a DNS record that points somewhere else"},
			},
			Description: `Adds (or updates) the ingress rule for hostname, then creates a proxied CNAME
pointing at the tunnel. If the DNS step fails the ingress change is rolled back.

Example: talpa dig app.example.com http://localhost:8080`,
		},
		{
			Name:      "plug",
			Usage:     "Remove the route for a hostname",
			ArgsUsage: "<hostname>",
			Action:    cliutil.Action(plugAction),
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "force", Usage: "delete the DNS record even if it does not point at the tunnel"},
			},
			Description: `Deletes the CNAME for hostname, then removes its ingress rules.`,
		},
		{
			Name:   "list",
			Usage:  "Show the routes of the tunnel",
			Action: cliutil.Action(listAction),
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: outputText, Usage: "text, json or yaml"},
			},
		},
		{
			Name:  "version",
			Usage: "Print version information",
			Action: func(c *cli.Context) error {
				fmt.Fprintf(c.App.Writer, "%s built %s\n", bInfo, BuildTime)
				return nil
			},
		},
	}
}

func setupAction(c *cli.Context) error {
	out := c.App.Writer
	creds := &credential.Credentials{
		AccountID: strings.TrimSpace(c.String("account-id")),
		ZoneID:    strings.TrimSpace(c.String("zone-id")),
		TunnelID:  strings.TrimSpace(c.String("tunnel-id")),
		APIToken:  strings.TrimSpace(c.String("api-token")),
	}
	if err := xcredential.Validate(creds); err != nil {
		return err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}
	if err = xcredential.Save(store, creds); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Credentials saved to the %s store\n", green("✓"), store.String())
	if c.Bool("skip-verify") {
		return nil
	}

	client := buildClient(cfg, creds)
	fmt.Fprintf(out, "%s Verifying zone... ", cyan("→"))
	zoneName, err := client.VerifyZone(c.Context, creds.ZoneID)
	if err != nil {
		fmt.Fprintln(out, red("failed"))
		return errors.Wrap(err, "verify zone")
	}
	fmt.Fprintf(out, "%s %s\n", green("ok"), dim(zoneName))

	fmt.Fprintf(out, "%s Verifying tunnel... ", cyan("→"))
	tunnelCfg, err := client.FetchConfig(c.Context, creds.TunnelID)
	if err != nil {
		fmt.Fprintln(out, red("failed"))
		return errors.Wrap(err, "verify tunnel")
	}
	fmt.Fprintf(out, "%s %s\n", green("ok"), dim(fmt.Sprintf("%d route(s)", tunnelCfg.Ingress.Routes())))
	return nil
}

func digAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return cliutil.UsageError("usage: talpa dig <hostname> <service>")
	}
	op, err := route.NewCreate(c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	op.Force = c.Bool("force")
	return apply(c, op)
}

func plugAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cliutil.UsageError("usage: talpa plug <hostname>")
	}
	op, err := route.NewRemove(c.Args().Get(0))
	if err != nil {
		return err
	}
	op.Force = c.Bool("force")
	return apply(c, op)
}

func apply(c *cli.Context, op route.Operation) error {
	creds, err := loadCredentials(cfg)
	if err != nil {
		return err
	}
	out := c.App.Writer
	p := &progress{w: out}
	res, err := buildSynchronizer(cfg, creds, p.observe).Apply(c.Context, op)
	if err != nil {
		return err
	}

	switch {
	case res.Status == consts.StatusUnchanged:
		fmt.Fprintf(out, "%s %s already routes to %s\n", green("✓"), bold(op.Hostname), op.Service)
	case op.Kind == route.KindCreate:
		fmt.Fprintf(out, "%s %s → %s\n", green("✓"), bold(op.Hostname), op.Service)
		fmt.Fprintf(out, "  %s\n", dim("CNAME → "+res.Target))
	default:
		fmt.Fprintf(out, "%s %s removed\n", green("✓"), bold(op.Hostname))
	}
	return nil
}

func listAction(c *cli.Context) error {
	format := c.String("output")
	if err := checkOutputFormat(format); err != nil {
		return err
	}
	creds, err := loadCredentials(cfg)
	if err != nil {
		return err
	}
	listing, err := route.NewLister(buildClient(cfg, creds), creds.TunnelID).List(c.Context)
	if err != nil {
		return err
	}
	return writeListing(c.App.Writer, format, listing)
}
