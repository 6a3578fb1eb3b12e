package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"numa/internal/app"
	"numa/internal/config"
	"numa/internal/core"
	"numa/internal/db"
	"numa/internal/fim"

	"github.com/google/uuid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("Unable to apply schema: %v", err)
	}

	users := core.NewUserService(pool)
	motor := fim.NewMotor(cfg.OpenAIAPIKey, fim.Config{
		ReasoningModel:            cfg.ReasoningModel,
		STTModel:                  cfg.STTModel,
		STTLanguage:               cfg.STTLanguage,
		IntentConfidenceThreshold: cfg.IntentConfidenceThreshold,
		AntExpenseThreshold:       cfg.AntExpenseThreshold,
		RequestDeadline:           cfg.RequestDeadline,
	})
	ledger := core.NewLedger(pool, motor, cfg.IntentConfidenceThreshold)
	orchestrator := app.NewOrchestrator(ledger, motor, app.SystemClock{}, cfg.RequestDeadline)

	if len(os.Args) > 1 {
		runOneShot(ctx, os.Args[1:], users, orchestrator)
		return
	}
	runREPL(ctx, users, orchestrator)
}

// runOneShot supports a non-interactive invocation: `numa <owner-id> "<text>"`,
// used by scripts and integration checks that don't want a REPL session.
func runOneShot(ctx context.Context, args []string, users core.UserService, o *app.Orchestrator) {
	if len(args) < 2 {
		log.Fatal(`Usage: numa <owner-id> "<message>"`)
	}
	if _, err := users.GetByOwnerID(ctx, args[0]); err != nil {
		log.Fatalf("Unknown owner %q: %v", args[0], err)
	}
	reqID := uuid.New().String()
	log.Printf("[%s] owner=%s dispatching one-shot text", reqID, args[0])
	env := o.HandleText(ctx, args[0], strings.Join(args[1:], " "))
	printEnvelope(env)
}

func runREPL(ctx context.Context, users core.UserService, o *app.Orchestrator) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Numa")
	fmt.Println("Tell me what you spent or earned, or use /help for commands.")
	fmt.Println(strings.Repeat("-", 70))

	var ownerID string
	var errExit = fmt.Errorf("exit")

	dispatchSlash := func(input string) error {
		tokens := strings.Fields(strings.TrimPrefix(input, "/"))
		if len(tokens) == 0 {
			return nil
		}
		cmd := strings.ToLower(tokens[0])
		args := tokens[1:]

		switch cmd {
		case "login":
			if len(args) < 2 {
				fmt.Println("Usage: /login <owner-id> <password>")
				return nil
			}
			if _, err := users.VerifyCredential(ctx, args[0], args[1]); err != nil {
				return err
			}
			ownerID = args[0]
			fmt.Printf("Logged in as %s.\n", ownerID)

		case "register":
			if len(args) < 2 {
				fmt.Println("Usage: /register <owner-id> <password>")
				return nil
			}
			if _, err := users.Register(ctx, args[0], args[1]); err != nil {
				return err
			}
			ownerID = args[0]
			fmt.Printf("Registered and logged in as %s.\n", ownerID)

		case "list":
			if err := requireLogin(ownerID); err != nil {
				return err
			}
			filter := core.Filter{}
			if len(args) > 0 {
				filter.Status = core.TransactionStatus(strings.ToUpper(args[0]))
			}
			env := o.ListTransactions(ctx, ownerID, filter)
			printEnvelope(env)

		case "sum":
			if err := requireLogin(ownerID); err != nil {
				return err
			}
			period := "today"
			if len(args) > 0 {
				period = args[0]
			}
			env := o.HandleText(ctx, ownerID, fmt.Sprintf("¿cuánto llevo %s?", period))
			printEnvelope(env)

		case "verify":
			if err := requireLogin(ownerID); err != nil {
				return err
			}
			if len(args) < 2 {
				fmt.Println("Usage: /verify <transaction-id> <path-to-document>")
				return nil
			}
			id, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Printf("Invalid transaction id: %s\n", args[0])
				return nil
			}
			documentBytes, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[1], err)
			}
			env := o.VerifyDocument(ctx, ownerID, id, documentBytes, mimeTypeFromExt(args[1]))
			printEnvelope(env)

		case "confirm":
			if err := requireLogin(ownerID); err != nil {
				return err
			}
			if len(args) < 1 {
				fmt.Println("Usage: /confirm <transaction-id>")
				return nil
			}
			id, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Printf("Invalid transaction id: %s\n", args[0])
				return nil
			}
			env := o.ManualVerify(ctx, ownerID, id)
			printEnvelope(env)

		case "summary":
			if err := requireLogin(ownerID); err != nil {
				return err
			}
			date := time.Now()
			if len(args) > 0 {
				parsed, err := time.Parse("2006-01-02", args[0])
				if err != nil {
					fmt.Printf("Invalid date %q, expected YYYY-MM-DD\n", args[0])
					return nil
				}
				date = parsed
			}
			env := o.DailySummary(ctx, ownerID, date)
			printEnvelope(env)

		case "voice":
			if err := requireLogin(ownerID); err != nil {
				return err
			}
			if len(args) < 1 {
				fmt.Println("Usage: /voice <path-to-audio-file>")
				return nil
			}
			audioBytes, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			env := o.HandleVoice(ctx, ownerID, audioBytes, "es")
			printEnvelope(env)

		case "help", "h":
			printHelp()

		case "exit", "quit", "e", "q":
			return errExit

		default:
			fmt.Printf("Unknown command: /%s  (type /help for all commands)\n", cmd)
		}
		return nil
	}

	for {
		fmt.Print("\n> ")
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		// Slash prefix → command dispatcher; /sum, /verify and /voice still
		// call the Intent Motor, the other commands do not.
		if strings.HasPrefix(input, "/") {
			if err := dispatchSlash(input); err != nil {
				if err == errExit {
					fmt.Println("Goodbye!")
					break
				}
				fmt.Printf("Error: %v\n", err)
			}
			continue
		}

		// No slash prefix → always route through the Orchestrator.
		if err := requireLogin(ownerID); err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		reqID := uuid.New().String()
		log.Printf("[%s] owner=%s dispatching free-text input", reqID, ownerID)
		env := o.HandleText(ctx, ownerID, input)
		printEnvelope(env)
	}
}

func requireLogin(ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("not logged in — use /login or /register first")
	}
	return nil
}

func mimeTypeFromExt(path string) string {
	switch {
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".pdf"):
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}

func printEnvelope(env app.ResponseEnvelope) {
	switch env.Type {
	case app.EnvelopeTransaction:
		if len(env.Data) == 0 {
			fmt.Println("No transactions.")
		}
		for _, t := range env.Data {
			merchant := ""
			if t.Merchant != nil {
				merchant = *t.Merchant
			}
			category := ""
			if t.Category != nil {
				category = *t.Category
			}
			fmt.Printf("  #%-4d %-8s %-10s %-20s %-15s %-15s %s\n",
				t.ID, t.Type, t.Amount.StringFixed(2), t.Concept, merchant, category, t.Status)
		}
		if env.Message != "" {
			fmt.Println(env.Message)
		}
	case app.EnvelopeChat:
		fmt.Printf("[Numa] %s\n", env.Message)
	case app.EnvelopeError:
		fmt.Printf("[Error: %s] %s\n", env.Kind, env.Message)
	}
}

func printHelp() {
	fmt.Println()
	fmt.Println("NUMA — COMMANDS")
	fmt.Println(strings.Repeat("=", 62))
	fmt.Println()
	fmt.Println("  SESSION")
	fmt.Println("  /register <owner-id> <password>  Create an account and log in")
	fmt.Println("  /login    <owner-id> <password>  Log in")
	fmt.Println()
	fmt.Println("  LEDGER")
	fmt.Println("  /list [status]                    List transactions (PROVISIONAL/VERIFIED/VERIFIED_MANUAL)")
	fmt.Println("  /sum [today|this_week|this_month]  Ask the total for a period")
	fmt.Println("  /summary [YYYY-MM-DD]              Daily income/expense split")
	fmt.Println("  /verify   <id> <path-to-document>  Verify a transaction with a receipt/invoice")
	fmt.Println("  /confirm  <id>                     Manually confirm a pending transaction")
	fmt.Println("  /voice    <path-to-audio-file>      Process a voice recording")
	fmt.Println()
	fmt.Println("  /help                              Show this help")
	fmt.Println("  /exit                              Exit")
	fmt.Println()
	fmt.Println("  NUMA MODE  (no / prefix)")
	fmt.Println("  Type any spending, income, or question in natural language.")
	fmt.Println("  Example: \"gasté 500 pesos en el súper\"")
	fmt.Println(strings.Repeat("=", 62))
}
