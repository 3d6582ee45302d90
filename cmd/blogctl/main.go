// Command blogctl exercises the blog API from the terminal: queries print
// JSON to stdout, mutations go through the optimistic cache so they behave
// exactly as the embedding UI would.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	json "github.com/goccy/go-json"

	"github.com/jackblog/blogkit"
	"github.com/jackblog/blogkit/config"
	"github.com/jackblog/blogkit/lib/telemetry"
	"github.com/jackblog/blogkit/observability"
	"github.com/jackblog/blogkit/schema"
)

const (
	defaultConfigPath        = "config/blogctl.yaml"
	loggerPrefix             = "blogctl "
	telemetryShutdownTimeout = 5 * time.Second
)

func main() {
	cfgPath := flag.String("config", "", fmt.Sprintf("Path to configuration file (default: %s)", defaultConfigPath))
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(os.Stderr, loggerPrefix, log.LstdFlags)
	observability.SetLogger(observability.NewSlog(slog.New(slog.NewTextHandler(os.Stderr, nil))))

	path := *cfgPath
	if path == "" {
		path = defaultConfigPath
	}
	cfg, loadedFromFile, err := config.Load(path)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if !loadedFromFile && *cfgPath != "" {
		logger.Fatalf("configuration file not found: %s", *cfgPath)
	}

	_, shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		logger.Fatalf("initialize telemetry: %v", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer shutdownCancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Printf("telemetry shutdown: %v", err)
		}
	}()

	client, err := blogkit.New(cfg)
	if err != nil {
		logger.Fatalf("build client: %v", err)
	}
	defer client.Close()

	if err := run(ctx, client, flag.Args()); err != nil {
		logger.Fatalf("%v", err)
	}
}

func run(ctx context.Context, client *blogkit.Client, args []string) error {
	if len(args) == 0 {
		return usageError()
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "posts":
		return runPosts(ctx, client, args)
	case "post":
		if len(args) != 1 {
			return fmt.Errorf("usage: blogctl post <slug>")
		}
		detail, err := client.Posts().Get(ctx, args[0])
		if err != nil {
			return err
		}
		return emit(detail)
	case "view":
		if len(args) != 1 {
			return fmt.Errorf("usage: blogctl view <slug>")
		}
		return client.Posts().View(ctx, args[0])
	case "search":
		if len(args) != 1 {
			return fmt.Errorf("usage: blogctl search <query>")
		}
		list, err := client.Posts().Search(ctx, args[0])
		if err != nil {
			return err
		}
		return emit(list)
	case "categories":
		list, err := client.Posts().Categories(ctx)
		if err != nil {
			return err
		}
		return emit(list)
	case "popular":
		limit := 5
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("usage: blogctl popular [limit]")
			}
			limit = n
		}
		list, err := client.Posts().Popular(ctx, limit)
		if err != nil {
			return err
		}
		return emit(list)
	case "comments":
		if len(args) != 1 {
			return fmt.Errorf("usage: blogctl comments <slug>")
		}
		cm := client.Comments(args[0])
		if err := cm.Load(ctx); err != nil {
			return err
		}
		return emit(cm.List())
	case "comment":
		return runComment(ctx, client, args)
	case "delete-comment":
		return runDeleteComment(ctx, client, args)
	case "react":
		if len(args) != 2 {
			return fmt.Errorf("usage: blogctl react <slug> <emoji>")
		}
		rx := client.Reactions(args[0])
		if err := rx.Load(ctx); err != nil {
			return err
		}
		if err := rx.ToggleReaction(ctx, args[1]); err != nil {
			return err
		}
		return emit(rx.Current())
	case "like":
		if len(args) != 1 {
			return fmt.Errorf("usage: blogctl like <slug>")
		}
		rx := client.Reactions(args[0])
		if err := rx.Load(ctx); err != nil {
			return err
		}
		if err := rx.ToggleLike(ctx); err != nil {
			return err
		}
		return emit(map[string]any{"liked": rx.Liked(), "likeCount": rx.LikeCount()})
	case "login":
		return runLogin(ctx, client, args)
	case "verify":
		valid, err := client.Auth().Verify(ctx)
		if err != nil {
			return err
		}
		return emit(map[string]bool{"valid": valid})
	default:
		return usageError()
	}
}

func runPosts(ctx context.Context, client *blogkit.Client, args []string) error {
	fs := flag.NewFlagSet("posts", flag.ContinueOnError)
	page := fs.Int("page", 0, "page number")
	size := fs.Int("size", 10, "page size")
	category := fs.String("category", "", "filter by category")
	all := fs.Bool("all", false, "include drafts (requires login)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *all {
		result, err := client.Posts().ListAll(ctx, *page, *size)
		if err != nil {
			return err
		}
		return emit(result)
	}
	result, err := client.Posts().List(ctx, *page, *size, *category)
	if err != nil {
		return err
	}
	return emit(result)
}

func runComment(ctx context.Context, client *blogkit.Client, args []string) error {
	fs := flag.NewFlagSet("comment", flag.ContinueOnError)
	name := fs.String("name", "", "author name")
	email := fs.String("email", "", "author email")
	password := fs.String("password", "", "deletion password")
	content := fs.String("content", "", "comment body")
	parent := fs.Int64("reply-to", 0, "parent comment id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: blogctl comment <slug> -name ... -password ... -content ...")
	}
	cm := client.Comments(fs.Arg(0))
	if err := cm.Load(ctx); err != nil {
		return err
	}
	req := schema.CommentCreateRequest{
		AuthorName:  *name,
		AuthorEmail: *email,
		Password:    *password,
		Content:     *content,
	}
	if *parent > 0 {
		return cm.Reply(ctx, *parent, req)
	}
	return cm.Add(ctx, req)
}

func runDeleteComment(ctx context.Context, client *blogkit.Client, args []string) error {
	fs := flag.NewFlagSet("delete-comment", flag.ContinueOnError)
	password := fs.String("password", "", "deletion password")
	email := fs.String("email", "", "requester email for social-login comments")
	admin := fs.Bool("admin", false, "delete with admin authority")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: blogctl delete-comment <slug> <id> [-password ...|-admin]")
	}
	id, err := strconv.ParseInt(fs.Arg(1), 10, 64)
	if err != nil {
		return fmt.Errorf("parse comment id: %w", err)
	}
	cm := client.Comments(fs.Arg(0))
	if err := cm.Load(ctx); err != nil {
		return err
	}
	if *admin {
		return cm.RemoveAsAdmin(ctx, id)
	}
	return cm.Remove(ctx, id, *password, *email)
}

func runLogin(ctx context.Context, client *blogkit.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	password := fs.String("password", "", "admin password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		return fmt.Errorf("usage: blogctl login -password ...")
	}
	if err := client.Auth().Login(ctx, *password); err != nil {
		return err
	}
	return emit(map[string]bool{"authenticated": client.Auth().IsAuthenticated()})
}

func emit(v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(raw))
	return err
}

func usageError() error {
	return fmt.Errorf("usage: blogctl [-config path] <posts|post|view|search|categories|popular|comments|comment|delete-comment|react|like|login|verify>")
}
