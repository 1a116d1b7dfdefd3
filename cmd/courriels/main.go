package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/titouancv/courriels/internal/config"
	"github.com/titouancv/courriels/internal/db"
	"github.com/titouancv/courriels/internal/gmail"
	"github.com/titouancv/courriels/internal/render"
	"github.com/titouancv/courriels/internal/services"
	"github.com/titouancv/courriels/internal/version"
	"github.com/titouancv/courriels/pkg/auth"
)

func main() {
	// Essential command line flags only (GNU-style double dashes)
	configPathFlag := flag.String("config", "", "Path to JSON configuration file (default: ~/.config/courriels/config.json)")
	credPathFlag := flag.String("credentials", "", "Path to OAuth client credentials JSON (default: ~/.config/courriels/credentials.json)")
	folderFlag := flag.String("folder", "inbox", "Folder to operate on: inbox, sent, drafts, trash")
	searchFlag := flag.String("search", "", "Free-text search query (overrides the folder query)")
	setupFlag := flag.Bool("setup", false, "Run interactive setup wizard")
	versionFlag := flag.Bool("version", false, "Show version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\n", version.GetVersionString())
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [options] <command> [args]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  list                List conversations in the selected folder\n")
		fmt.Fprintf(os.Stderr, "  show <thread-id>    Show one conversation in full\n")
		fmt.Fprintf(os.Stderr, "  read <thread-id>    Mark a conversation as read\n")
		fmt.Fprintf(os.Stderr, "  trash <thread-id>   Move a conversation to trash\n")
		fmt.Fprintf(os.Stderr, "  send                Send a message (see send -h)\n")
		fmt.Fprintf(os.Stderr, "  unread              Show the unread estimate for the folder\n")
		fmt.Fprintf(os.Stderr, "  profile             Show the signed-in account profile\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  COURRIELS_CONFIG      Override default config file path\n")
		fmt.Fprintf(os.Stderr, "  COURRIELS_CREDENTIALS Override default credentials file path\n")
		fmt.Fprintf(os.Stderr, "  COURRIELS_TOKEN       Override default token file path\n")
	}

	flag.Parse()

	if *versionFlag {
		fmt.Println(version.GetDetailedVersionString())
		return
	}

	if *setupFlag {
		runSetupWizard()
		return
	}

	configPath := getConfigPath(*configPathFlag)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Warning: could not load configuration: %v", err)
		cfg = config.DefaultConfig()
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
			logger = log.New(f, "", log.LstdFlags)
		} else {
			log.Printf("Warning: could not open log file: %v", err)
		}
	}

	credPath := getCredentialsPath(*credPathFlag, cfg.Credentials)
	tokenPath := getTokenPath("", cfg.Token)

	if credPath == "" {
		log.Fatal("Gmail credentials file is required. Provide it via --credentials or config file.")
	}
	if _, err := os.Stat(credPath); err != nil {
		log.Fatalf("Credentials file not found at %s. Download client credentials from Google Cloud Console and place it there.", credPath)
	}

	ctx := context.Background()
	service, err := auth.NewGmailService(ctx, credPath, tokenPath,
		"https://www.googleapis.com/auth/gmail.readonly",
		"https://www.googleapis.com/auth/gmail.send",
		"https://www.googleapis.com/auth/gmail.modify",
		"https://www.googleapis.com/auth/gmail.compose",
	)
	if err != nil {
		log.Fatalf("Could not initialize Gmail service: %v", err)
	}

	client := gmail.NewClient(service)

	// Optional: local store for the profile and rendered body cache
	var store *db.Store
	dbPath := expandPath(cfg.Database)
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	if st, err := db.Open(ctx, dbPath); err == nil {
		store = st
		defer func() { _ = store.Close() }()
	} else {
		log.Printf("Warning: could not open local store: %v", err)
	}

	queries := buildQueryService(cfg, logger)

	threads := services.NewThreadService(client, queries, cfg.FetchWorkers)
	threads.SetLogger(logger)
	if store != nil {
		threads.SetBodyCache(db.NewBodyStore(store))
	}

	folder := services.Folder(strings.ToLower(*folderFlag))

	command := flag.Arg(0)
	if command == "" {
		flag.Usage()
		os.Exit(2)
	}

	switch command {
	case "list":
		runList(ctx, threads, folder, *searchFlag, cfg.PageSize)
	case "show":
		runShow(ctx, threads, client, flag.Arg(1))
	case "read":
		requireArg(flag.Arg(1), "thread id")
		if err := threads.MarkConversationRead(ctx, flag.Arg(1)); err != nil {
			log.Fatalf("Could not mark conversation read: %v", err)
		}
		fmt.Println("Marked as read.")
	case "trash":
		requireArg(flag.Arg(1), "thread id")
		if err := threads.TrashConversation(ctx, flag.Arg(1)); err != nil {
			log.Fatalf("Could not trash conversation: %v", err)
		}
		fmt.Println("Moved to trash.")
	case "unread":
		count, err := threads.UnreadCount(ctx, folder)
		if err != nil {
			log.Fatalf("Could not estimate unread count: %v", err)
		}
		fmt.Printf("%d unread in %s\n", count, folder)
	case "send":
		runSend(ctx, threads, client, logger, flag.Args()[1:])
	case "profile":
		runProfile(ctx, client, store, logger)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		flag.Usage()
		os.Exit(2)
	}
}

func buildQueryService(cfg *config.Config, logger *log.Logger) services.QueryService {
	overrides := make(map[services.Folder]string)
	if cfg.FoldersFile != "" {
		if folders, err := config.LoadFolderQueries(expandPath(cfg.FoldersFile)); err == nil {
			for name, query := range folders.Overrides() {
				overrides[services.Folder(name)] = query
			}
		} else {
			logger.Printf("Warning: could not load folder queries: %v", err)
		}
	}
	return services.NewQueryService(overrides)
}

func runList(ctx context.Context, threads services.ThreadService, folder services.Folder, search string, pageSize int64) {
	page, err := threads.ListConversations(ctx, folder, services.ListOptions{
		Search:     search,
		MaxResults: pageSize,
	})
	if err != nil {
		log.Fatalf("Could not list conversations: %v", err)
	}
	for _, conv := range page.Conversations {
		marker := " "
		if !conv.Read {
			marker = "*"
		}
		fmt.Printf("%s %-18s %-28s %s\n", marker, conv.ID, conv.Sender.Name, conv.Subject)
	}
	if page.NextPageToken != "" {
		fmt.Printf("\nMore results available (next page token: %s)\n", page.NextPageToken)
	}
}

func runShow(ctx context.Context, threads services.ThreadService, client *gmail.Client, threadID string) {
	requireArg(threadID, "thread id")
	conv, err := threads.GetConversation(ctx, threadID)
	if err != nil {
		log.Fatalf("Could not load conversation: %v", err)
	}
	fmt.Printf("Subject: %s\n", conv.Subject)
	for _, msg := range conv.Messages {
		fetch := func(attachmentID string) ([]byte, error) {
			return client.GetAttachment(ctx, msg.ID, attachmentID)
		}
		body := render.ResolveInlineImages(msg.Cleaned, msg.Attachments, fetch)
		fmt.Printf("\n--- %s <%s> at %s\n", msg.Sender.Name, msg.Sender.Email, msg.Date.Format("2006-01-02 15:04"))
		fmt.Println(body)
		for _, att := range msg.RegularAttachments() {
			fmt.Printf("  [attachment] %s (%s, %d bytes)\n", att.Filename, att.MimeType, att.Size)
		}
	}
}

func runSend(ctx context.Context, threads services.ThreadService, client *gmail.Client, logger *log.Logger, args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	to := fs.String("to", "", "Recipient addresses, comma separated")
	cc := fs.String("cc", "", "Cc addresses, comma separated")
	subject := fs.String("subject", "", "Message subject")
	body := fs.String("body", "", "Message body (HTML)")
	attach := fs.String("attach", "", "Files to attach, comma separated")
	replyTo := fs.String("reply-to", "", "Thread ID to reply to (seeds recipients, subject and threading headers)")
	_ = fs.Parse(args)

	compose := services.NewComposeService(client)
	compose.SetLogger(logger)

	var comp *services.Composition
	if *replyTo != "" {
		conv, err := threads.GetConversation(ctx, *replyTo)
		if err != nil {
			log.Fatalf("Could not load conversation to reply to: %v", err)
		}
		comp = services.ReplyComposition(conv, *body)
		if comp == nil {
			log.Fatal("Conversation has no messages to reply to.")
		}
	} else {
		comp = &services.Composition{
			To:       splitAddresses(*to),
			Cc:       splitAddresses(*cc),
			Subject:  *subject,
			BodyHTML: *body,
		}
	}

	for _, path := range splitAddresses(*attach) {
		data, err := os.ReadFile(expandPath(path))
		if err != nil {
			log.Fatalf("Could not read attachment %s: %v", path, err)
		}
		comp.Attachments = append(comp.Attachments, services.OutboundAttachment{
			Filename: filepath.Base(path),
			Data:     data,
		})
	}

	id, err := compose.Send(ctx, comp)
	if err != nil {
		log.Fatalf("Could not send message: %v", err)
	}
	fmt.Printf("Sent (message id %s).\n", id)
}

func splitAddresses(list string) []string {
	if list == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func runProfile(ctx context.Context, client *gmail.Client, store *db.Store, logger *log.Logger) {
	var profileStore *db.ProfileStore
	if store != nil {
		profileStore = db.NewProfileStore(store)
	}
	accounts := services.NewAccountService(client, profileStore)
	accounts.SetLogger(logger)
	profile, err := accounts.GetProfile(ctx)
	if err != nil {
		log.Fatalf("Could not load profile: %v", err)
	}
	fmt.Printf("%s <%s>\n", profile.Name, profile.Email)
}

func requireArg(value, name string) {
	if value == "" {
		fmt.Fprintf(os.Stderr, "Missing required argument: %s\n\n", name)
		flag.Usage()
		os.Exit(2)
	}
}

// getConfigPath returns the configuration file path using the following priority:
// 1. CLI flag
// 2. Environment variable COURRIELS_CONFIG
// 3. Default path ~/.config/courriels/config.json
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envPath := os.Getenv("COURRIELS_CONFIG"); envPath != "" {
		return expandPath(envPath)
	}

	return config.DefaultConfigPath()
}

// getCredentialsPath returns the credentials file path using the following priority:
// 1. CLI flag
// 2. Environment variable COURRIELS_CREDENTIALS
// 3. Config file setting
// 4. Default path ~/.config/courriels/credentials.json
func getCredentialsPath(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envPath := os.Getenv("COURRIELS_CREDENTIALS"); envPath != "" {
		return expandPath(envPath)
	}

	if configValue != "" {
		return expandPath(configValue)
	}

	credPath, _ := config.DefaultCredentialPaths()
	return credPath
}

// getTokenPath returns the token file path using the following priority:
// 1. CLI flag
// 2. Environment variable COURRIELS_TOKEN
// 3. Config file setting
// 4. Default path ~/.config/courriels/token.json
func getTokenPath(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envPath := os.Getenv("COURRIELS_TOKEN"); envPath != "" {
		return expandPath(envPath)
	}

	if configValue != "" {
		return expandPath(configValue)
	}

	_, tokenPath := config.DefaultCredentialPaths()
	return tokenPath
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}

	return filepath.Join(home, path[2:])
}

// runSetupWizard helps users create the initial configuration
func runSetupWizard() {
	fmt.Println("📧 Courriels Setup Wizard")
	fmt.Println("=========================")
	fmt.Println()

	defaultConfigPath := config.DefaultConfigPath()
	credPath, tokenPath := config.DefaultCredentialPaths()

	if _, err := os.Stat(defaultConfigPath); err == nil {
		fmt.Printf("✅ Configuration file already exists: %s\n", defaultConfigPath)
	} else {
		fmt.Printf("📝 Will create configuration file: %s\n", defaultConfigPath)
	}

	if _, err := os.Stat(credPath); err == nil {
		fmt.Printf("✅ Credentials file found: %s\n", credPath)
	} else {
		fmt.Printf("⚠️  Credentials file missing: %s\n", credPath)
		fmt.Println()
		fmt.Println("📋 To set up Gmail API credentials:")
		fmt.Println("1. Go to https://console.cloud.google.com/")
		fmt.Println("2. Create a new project or select existing one")
		fmt.Println("3. Enable Gmail API")
		fmt.Println("4. Create OAuth 2.0 credentials (Desktop application)")
		fmt.Println("5. Download the JSON file and save it as:")
		fmt.Printf("   %s\n", credPath)
		fmt.Println()
	}

	if _, err := os.Stat(tokenPath); err == nil {
		fmt.Printf("✅ Token file exists: %s\n", tokenPath)
	} else {
		fmt.Printf("🔐 Token will be created on first login: %s\n", tokenPath)
	}

	if _, err := os.Stat(defaultConfigPath); os.IsNotExist(err) {
		fmt.Println()
		fmt.Print("📄 Create default configuration file? [Y/n]: ")

		var response string
		_, _ = fmt.Scanln(&response) // User input - error not actionable

		if response == "" || strings.ToLower(response) == "y" || strings.ToLower(response) == "yes" {
			cfg := config.DefaultConfig()
			if err := cfg.SaveConfig(defaultConfigPath); err != nil {
				fmt.Printf("❌ Failed to create config file: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("✅ Created configuration file: %s\n", defaultConfigPath)
		}
	}

	fmt.Println()
	fmt.Println("🚀 Setup complete! You can now run:")
	fmt.Printf("   %s list\n", os.Args[0])
}
