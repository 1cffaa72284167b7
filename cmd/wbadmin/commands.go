package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/marketplace"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/models"
	"github.com/KoboSteruS/WB-ADMIN-sub001/internal/prefs"
)

const dateLayout = "2006-01-02"

var errUsage = errors.New("invalid arguments")

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.logout(ctx)
	case "status":
		return a.status()
	case "whoami":
		u, err := a.api.CurrentUser(ctx)
		if err != nil {
			return err
		}
		return a.print(u)
	case "creds", "credentials":
		return a.creds(ctx, args)
	case "sales":
		return a.sales(ctx, args)
	case "export":
		return a.export(ctx, args)
	case "theme":
		return a.theme(ctx, args)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "username")
	password := fs.String("p", os.Getenv("WBADMIN_PASSWORD"), "password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *username == "" || *password == "" {
		return fmt.Errorf("%w: login needs -u and -p (or WBADMIN_PASSWORD)", errUsage)
	}

	session, err := a.client.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s\n", session.User.Username)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *app) status() error {
	if !a.client.IsAuthenticated() {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	exp, ok := a.client.AccessTokenExpiry()
	if !ok {
		fmt.Fprintln(a.out, "Logged in")
		return nil
	}
	left := time.Until(exp).Round(time.Second)
	if left <= 0 {
		fmt.Fprintf(a.out, "Logged in, access token expired at %s (will refresh on next call)\n", exp.Format(time.RFC3339))
		return nil
	}
	fmt.Fprintf(a.out, "Logged in, access token valid for %s\n", left)
	return nil
}

func (a *app) creds(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: creds <action> <marketplace>", errUsage)
	}
	action := args[0]
	m, err := models.ParseMarketplace(args[1])
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	rest := args[2:]

	switch action {
	case "list":
		list, err := a.api.ListCredentials(ctx, m)
		if err != nil {
			return err
		}
		return a.print(list)
	case "get":
		id, err := firstArg(rest, "id")
		if err != nil {
			return err
		}
		c, err := a.api.GetCredential(ctx, m, id)
		if err != nil {
			return err
		}
		return a.print(c)
	case "create":
		in, err := credentialFlags("create", rest)
		if err != nil {
			return err
		}
		c, err := a.api.CreateCredential(ctx, m, in)
		if err != nil {
			return err
		}
		return a.print(c)
	case "update", "patch":
		id, err := firstArg(rest, "id")
		if err != nil {
			return err
		}
		in, err := credentialFlags(action, rest[1:])
		if err != nil {
			return err
		}
		var c *models.Credential
		if action == "update" {
			c, err = a.api.UpdateCredential(ctx, m, id, in)
		} else {
			c, err = a.api.PatchCredential(ctx, m, id, in)
		}
		if err != nil {
			return err
		}
		return a.print(c)
	case "delete":
		id, err := firstArg(rest, "id")
		if err != nil {
			return err
		}
		if err := a.api.DeleteCredential(ctx, m, id); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Deleted", id)
		return nil
	case "import":
		path, err := firstArg(rest, "file")
		if err != nil {
			return err
		}
		return a.importCSV(ctx, m, path)
	default:
		return fmt.Errorf("%w: unknown creds action %q", errUsage, action)
	}
}

func (a *app) importCSV(ctx context.Context, m models.Marketplace, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	upload := models.Upload{FieldName: "file", FileName: filepath.Base(path), Content: f}
	result, err := a.api.ImportCredentials(ctx, m, upload, func(p float64) {
		a.log.Debugw("Upload progress", "percent", p)
	})
	if err != nil {
		return err
	}
	return a.print(result)
}

func (a *app) sales(ctx context.Context, args []string) error {
	q, _, err := salesFlags("sales", args)
	if err != nil {
		return err
	}
	s, err := a.api.SalesSummary(ctx, q)
	if err != nil {
		return err
	}
	return a.print(s)
}

func (a *app) export(ctx context.Context, args []string) error {
	q, fs, err := salesFlags("export", args, "dir", "name")
	if err != nil {
		return err
	}
	path, err := a.api.ExportSales(ctx, q, fs.Lookup("dir").Value.String(), fs.Lookup("name").Value.String())
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Saved", path)
	return nil
}

func (a *app) theme(ctx context.Context, args []string) error {
	action := "get"
	if len(args) > 0 {
		action = args[0]
	}

	var (
		t   prefs.Theme
		err error
	)
	switch action {
	case "get":
		t, err = a.prefs.Theme(ctx)
	case "toggle":
		t, err = a.prefs.ToggleTheme(ctx)
	case "set":
		if len(args) < 2 {
			return fmt.Errorf("%w: theme set light|dark", errUsage)
		}
		if t, err = prefs.ParseTheme(args[1]); err != nil {
			return fmt.Errorf("%w: %w", errUsage, err)
		}
		err = a.prefs.SetTheme(ctx, t)
	default:
		return fmt.Errorf("%w: unknown theme action %q", errUsage, action)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, t)
	return nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// credentialFlags only sets the fields given on the command line, so the
// same parser serves create, PUT and PATCH.
func credentialFlags(name string, args []string) (models.CredentialInput, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("name", "", "display name")
	fs.String("api-key", "", "marketplace API key")
	fs.String("client-id", "", "client or campaign id (Ozon, Yandex Market)")
	fs.Bool("active", true, "whether the credential is active")
	if err := fs.Parse(args); err != nil {
		return models.CredentialInput{}, errUsage
	}

	var in models.CredentialInput
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "name":
			in.Name = &v
		case "api-key":
			in.APIKey = &v
		case "client-id":
			in.ClientID = &v
		case "active":
			b := v == "true"
			in.IsActive = &b
		}
	})
	return in, nil
}

func salesFlags(name string, args []string, extra ...string) (marketplace.SalesQuery, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	mp := fs.String("marketplace", "", "wildberries, ozon or yandex_market; empty for all")
	from := fs.String("from", "", "first day, YYYY-MM-DD")
	to := fs.String("to", "", "last day, YYYY-MM-DD")
	for _, e := range extra {
		def := ""
		if e == "dir" {
			def = "."
		}
		fs.String(e, def, e)
	}
	if err := fs.Parse(args); err != nil {
		return marketplace.SalesQuery{}, nil, errUsage
	}

	q := marketplace.SalesQuery{Marketplace: models.Marketplace(*mp)}
	var err error
	if q.From, err = parseDate(*from); err != nil {
		return q, nil, err
	}
	if q.To, err = parseDate(*to); err != nil {
		return q, nil, err
	}
	return q, fs, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q, want YYYY-MM-DD", errUsage, s)
	}
	return t, nil
}

func firstArg(args []string, name string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		return "", fmt.Errorf("%w: missing <%s>", errUsage, name)
	}
	return args[0], nil
}
