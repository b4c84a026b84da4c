package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/hndao/inkpost/internal/config"
	"github.com/hndao/inkpost/internal/coordinator"
	"github.com/hndao/inkpost/internal/db"
	"github.com/hndao/inkpost/internal/document"
	"github.com/hndao/inkpost/internal/draft"
	"github.com/hndao/inkpost/internal/logger"
	"github.com/hndao/inkpost/internal/media"
	"github.com/hndao/inkpost/internal/model"
	"github.com/hndao/inkpost/internal/preview"
	"github.com/hndao/inkpost/internal/session"
	"github.com/hndao/inkpost/internal/util/compression"
)

var (
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

const usage = `usage: inkpost <command> [arguments]

commands:
  login                       authenticate and store a session token
  list                        list published posts
  show <post-id>              print a post with its sections
  new [flags]                 compose and publish a new post
  edit <post-id> [flags]      edit a published post or resume a saved draft
  delete <post-id> [--yes]    delete a post and its images
  preview [flags]             render a draft or post to an HTML file
`

func main() {
	// .env may point at the config file itself, so load it before anything.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := config.LoadConfig(config.DefaultConfigPath()); err != nil {
		fatal(err)
	}
	cfg := config.AppConfig

	l := logger.New(cfg.Logging.Level)
	config.SetLogger(l)
	session.SetLogger(l)
	document.SetLogger(l)
	media.SetLogger(l)
	coordinator.SetLogger(l)
	preview.SetLogger(l)
	db.SetLogger(l)

	a, err := newApp(cfg)
	if err != nil {
		fatal(err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := os.Args[2:]
	switch os.Args[1] {
	case "login":
		err = a.runLogin(ctx)
	case "list":
		err = a.runList(ctx)
	case "show":
		err = a.runShow(ctx, args)
	case "new":
		err = a.runNew(ctx, args)
	case "edit":
		err = a.runEdit(ctx, args)
	case "delete":
		err = a.runDelete(ctx, args)
	case "preview":
		err = a.runPreview(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
	os.Exit(1)
}

type app struct {
	cfg    *config.Config
	files  *session.FileStore
	docs   *document.Client
	coord  *coordinator.Coordinator
	drafts draft.Store
	dbh    db.DB
}

func newApp(cfg *config.Config) (*app, error) {
	tokenPath, err := cfg.TokenPath()
	if err != nil {
		return nil, fmt.Errorf("error resolving token path: %w", err)
	}
	files := session.NewFileStore(tokenPath)

	// An environment token takes precedence over the stored one but is never
	// evicted; it belongs to whoever set it.
	var tokens session.TokenSource = files
	if env := os.Getenv(config.EnvToken); env != "" {
		tokens = session.StaticToken(env)
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.API.TimeoutSeconds) * time.Second}
	docs := document.NewClient(cfg.API.BaseURL, httpClient, tokens)

	mediaGw, err := newMediaGateway(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:   cfg,
		files: files,
		docs:  docs,
		coord: coordinator.New(docs, mediaGw, cfg.Media.Folder),
	}, nil
}

func newMediaGateway(cfg *config.Config, client *http.Client) (media.Gateway, error) {
	if cfg.Media.Backend == config.MediaBackendS3 {
		s3cfg := cfg.Media.S3
		accessKey := s3cfg.AccessKeyID
		if accessKey == "" {
			accessKey = os.Getenv("S3_ACCESS_KEY_ID")
		}
		secretKey := s3cfg.SecretAccessKey
		if secretKey == "" {
			secretKey = os.Getenv("S3_SECRET_ACCESS_KEY")
		}
		return media.NewS3Gateway(accessKey, secretKey, s3cfg.Region, s3cfg.Endpoint, s3cfg.Bucket, s3cfg.PublicBaseURL)
	}
	return media.NewHTTPGateway(cfg.Media.BaseURL, client), nil
}

// draftStore opens the autosave database on first use so read-only commands
// never touch it.
func (a *app) draftStore() (draft.Store, error) {
	if a.drafts != nil {
		return a.drafts, nil
	}

	path, err := a.cfg.DraftsPath()
	if err != nil {
		return nil, fmt.Errorf("error resolving drafts path: %w", err)
	}

	a.dbh = db.NewSQLite(path)
	if err := a.dbh.InitDB(); err != nil {
		return nil, fmt.Errorf("error opening drafts database: %w", err)
	}

	compressor, err := compression.ForName(a.cfg.Drafts.Compression)
	if err != nil {
		return nil, err
	}

	a.drafts = draft.NewSQLiteStore(a.dbh, compressor)
	return a.drafts, nil
}

func (a *app) Close() {
	if a.dbh != nil {
		a.dbh.Close()
	}
}

func (a *app) runLogin(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Print(headingStyle.Render("Username: "))
	if !scanner.Scan() {
		return fmt.Errorf("no username entered")
	}
	username := strings.TrimSpace(scanner.Text())

	fmt.Print(headingStyle.Render("Password: "))
	if !scanner.Scan() {
		return fmt.Errorf("no password entered")
	}
	password := strings.TrimSpace(scanner.Text())

	creds, err := a.docs.Login(ctx, username, password)
	if err != nil {
		return err
	}

	if err := a.files.Save(creds.Token); err != nil {
		return fmt.Errorf("error storing session token: %w", err)
	}

	fmt.Println(valueStyle.Render("Logged in as " + creds.Username))
	return nil
}

func (a *app) runList(ctx context.Context) error {
	posts, err := a.docs.List(ctx)
	if err != nil {
		return err
	}

	if len(posts) == 0 {
		fmt.Println(dimStyle.Render("No posts yet."))
		return nil
	}

	for _, p := range posts {
		author := ""
		if p.Author != nil {
			author = " by " + p.Author.Username
		}
		fmt.Printf("%s  %s%s\n",
			dimStyle.Render(string(p.ID)),
			valueStyle.Render(p.Title),
			dimStyle.Render(author))
	}
	return nil
}

func (a *app) runShow(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: inkpost show <post-id>")
	}

	post, err := a.docs.GetByID(ctx, model.DocumentID(args[0]))
	if err != nil {
		return err
	}

	fmt.Println(headingStyle.Render(post.Title))
	fmt.Println(dimStyle.Render(string(post.ID) + "  " + post.CreatedAt.Format("2006-01-02 15:04")))
	for i, s := range post.Sections {
		fmt.Println()
		fmt.Println(dimStyle.Render(fmt.Sprintf("-- section %d --", i)))
		if s.ImgURL != "" {
			fmt.Println(valueStyle.Render("[image] " + s.ImgURL))
		}
		fmt.Println(s.Content)
	}
	return nil
}

func (a *app) runNew(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	title := fs.String("title", "", "post title")
	from := fs.String("from", "", "markdown file to import")
	var sections multiFlag
	fs.Var(&sections, "section", "section content (repeatable)")
	var attaches multiFlag
	fs.Var(&attaches, "attach", "i=path: attach an image to section i (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var d *draft.Draft
	if *from != "" {
		data, err := os.ReadFile(*from)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", *from, err)
		}
		d, err = draft.FromMarkdown(data)
		if err != nil {
			return err
		}
		if *title != "" {
			d.SetTitle(*title)
		}
	} else {
		d = draft.New()
		d.SetTitle(*title)
		for _, content := range sections {
			i := d.AddSection()
			d.UpdateContent(i, content)
		}
	}
	defer d.ReleasePreviews()

	if err := a.applyAttaches(d, attaches); err != nil {
		return err
	}

	post, report, err := a.coord.Create(ctx, d)
	if err != nil {
		return a.stashDraft(d, err)
	}

	fmt.Println(valueStyle.Render("Published ") + headingStyle.Render(post.Title) + dimStyle.Render("  "+string(post.ID)))
	printWarnings(report)
	return nil
}

func (a *app) runEdit(ctx context.Context, args []string) error {
	var postID string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		postID = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	draftID := fs.String("draft", "", "resume a saved draft by id")
	title := fs.String("title", "", "replace the post title")
	var contents multiFlag
	fs.Var(&contents, "content", "i=text: replace section i's content (repeatable)")
	var attaches multiFlag
	fs.Var(&attaches, "attach", "i=path: attach an image to section i (repeatable)")
	var removes multiFlag
	fs.Var(&removes, "remove-section", "i: remove section i (repeatable, committed immediately)")
	var adds multiFlag
	fs.Var(&adds, "add-section", "text: append a new section (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var d *draft.Draft
	var err error
	switch {
	case *draftID != "":
		store, serr := a.draftStore()
		if serr != nil {
			return serr
		}
		d, err = store.Get(*draftID)
	case postID != "":
		d, err = a.coord.Edit(ctx, model.DocumentID(postID))
	default:
		return fmt.Errorf("usage: inkpost edit <post-id> [flags] (or --draft <id>)")
	}
	if err != nil {
		return err
	}
	defer d.ReleasePreviews()

	// Removals commit immediately, so run them before staging anything else.
	// Descending order keeps the remaining indexes stable.
	indexes, err := parseIndexes(removes)
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.IntSlice(indexes)))
	for _, i := range indexes {
		if err := checkIndex(d, i); err != nil {
			return err
		}
		report, err := a.coord.RemoveSection(ctx, d, i)
		if report != nil {
			printWarnings(report)
		}
		if err != nil {
			return a.stashDraft(d, err)
		}
		fmt.Println(valueStyle.Render(fmt.Sprintf("Removed section %d", i)))
	}

	staged := false
	if *title != "" {
		d.SetTitle(*title)
		staged = true
	}
	for _, kv := range contents {
		i, text, err := parseIndexed(kv)
		if err != nil {
			return err
		}
		if err := checkIndex(d, i); err != nil {
			return err
		}
		d.UpdateContent(i, text)
		staged = true
	}
	for _, text := range adds {
		i := d.AddSection()
		d.UpdateContent(i, text)
		staged = true
	}
	if len(attaches) > 0 {
		if err := a.applyAttaches(d, attaches); err != nil {
			return err
		}
		staged = true
	}

	if !staged && *draftID == "" {
		return nil
	}

	var post *model.Post
	var report *coordinator.CleanupReport
	verb := "Updated "
	if d.PostID == "" {
		verb = "Published "
		post, report, err = a.coord.Create(ctx, d)
	} else {
		post, report, err = a.coord.Submit(ctx, d)
	}
	if err != nil {
		return a.stashDraft(d, err)
	}

	if *draftID != "" {
		if store, serr := a.draftStore(); serr == nil {
			store.Delete(*draftID)
		}
	}

	fmt.Println(valueStyle.Render(verb) + headingStyle.Render(post.Title) + dimStyle.Render("  "+string(post.ID)))
	printWarnings(report)
	return nil
}

func (a *app) runDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	yes := fs.Bool("yes", false, "skip the confirmation prompt")

	var postID string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		postID = args[0]
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if postID == "" {
		return fmt.Errorf("usage: inkpost delete <post-id> [--yes]")
	}

	post, err := a.docs.GetByID(ctx, model.DocumentID(postID))
	if err != nil {
		return err
	}

	if !*yes {
		fmt.Print(headingStyle.Render(fmt.Sprintf("Delete %q and its images? [y/N] ", post.Title)))
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() || strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
			fmt.Println(dimStyle.Render("Aborted."))
			return nil
		}
	}

	report, err := a.coord.Delete(ctx, post)
	if err != nil {
		return err
	}

	fmt.Println(valueStyle.Render("Deleted ") + headingStyle.Render(post.Title))
	printWarnings(report)
	return nil
}

func (a *app) runPreview(ctx context.Context, args []string) error {
	var postID string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		postID = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	draftID := fs.String("draft", "", "preview a saved draft by id")
	out := fs.String("out", "", "output HTML file (default: a temp file)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var d *draft.Draft
	var err error
	switch {
	case *draftID != "":
		store, serr := a.draftStore()
		if serr != nil {
			return serr
		}
		d, err = store.Get(*draftID)
	case postID != "":
		d, err = a.coord.Edit(ctx, model.DocumentID(postID))
	default:
		return fmt.Errorf("usage: inkpost preview <post-id> (or --draft <id>)")
	}
	if err != nil {
		return err
	}
	defer d.ReleasePreviews()

	path := *out
	var f *os.File
	if path == "" {
		f, err = os.CreateTemp("", "inkpost-preview-*.html")
	} else {
		f, err = os.Create(path)
	}
	if err != nil {
		return fmt.Errorf("error creating preview file: %w", err)
	}
	defer f.Close()

	if err := preview.RenderDraft(f, d, a.cfg.Preview.SyntaxTheme); err != nil {
		return err
	}

	fmt.Println(valueStyle.Render("Preview written to ") + f.Name())
	return nil
}

// stashDraft saves the draft locally after a failed publish so the work
// survives and the error keeps its context.
func (a *app) stashDraft(d *draft.Draft, cause error) error {
	store, err := a.draftStore()
	if err != nil {
		return cause
	}
	if err := store.Save(d); err != nil {
		return cause
	}
	fmt.Println(dimStyle.Render("Draft saved; resume with: inkpost edit --draft " + d.ID))
	return cause
}

func (a *app) applyAttaches(d *draft.Draft, attaches []string) error {
	for _, kv := range attaches {
		i, path, err := parseIndexed(kv)
		if err != nil {
			return err
		}
		if err := checkIndex(d, i); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", path, err)
		}
		if err := d.AttachFile(i, filepath.Base(path), data); err != nil {
			return err
		}
	}
	return nil
}

func printWarnings(report *coordinator.CleanupReport) {
	for _, w := range report.Warnings() {
		fmt.Println(warnStyle.Render("warning: ") + w)
	}
}

type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func parseIndexed(value string) (int, string, error) {
	k, v, ok := strings.Cut(value, "=")
	if !ok {
		return 0, "", fmt.Errorf("expected i=value, got %q", value)
	}
	i, err := strconv.Atoi(k)
	if err != nil {
		return 0, "", fmt.Errorf("invalid section index %q", k)
	}
	return i, v, nil
}

func parseIndexes(values []string) ([]int, error) {
	indexes := make([]int, 0, len(values))
	for _, v := range values {
		i, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid section index %q", v)
		}
		indexes = append(indexes, i)
	}
	return indexes, nil
}

func checkIndex(d *draft.Draft, i int) error {
	if i < 0 || i >= len(d.Sections) {
		return fmt.Errorf("section index %d out of range (draft has %d sections)", i, len(d.Sections))
	}
	return nil
}
