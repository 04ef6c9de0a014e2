package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"toribot/pkg/config"
	"toribot/pkg/pairing"
)

var (
	pairCode string
	pairName string
)

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Manage the pairing code and paired senders",
	Long: `Manage how KakaoTalk senders get access to the bot.

Senders prove themselves by messaging "/pair <code>" with the code set
here. Verified senders are remembered across restarts.`,
}

var pairSetCodeCmd = &cobra.Command{
	Use:   "set-code",
	Short: "Set the pairing code",
	Long: `Set the pairing code new senders must present. Only a bcrypt hash of
the code is stored in the config file.

Examples:
  # Interactive code input
  toribot pair set-code

  # Non-interactive
  toribot pair set-code --code snowy-river-42`,
	Run: runPairSetCode,
}

var pairListCmd = &cobra.Command{
	Use:   "list",
	Short: "List paired senders",
	Run:   runPairList,
}

var pairAdmitCmd = &cobra.Command{
	Use:   "admit <sender-id>",
	Short: "Admit a sender without a code",
	Args:  cobra.ExactArgs(1),
	Run:   runPairAdmit,
}

var pairRevokeCmd = &cobra.Command{
	Use:   "revoke <sender-id>",
	Short: "Revoke a paired sender",
	Args:  cobra.ExactArgs(1),
	Run:   runPairRevoke,
}

func init() {
	pairSetCodeCmd.Flags().StringVar(&pairCode, "code", "", "new pairing code")
	pairAdmitCmd.Flags().StringVar(&pairName, "name", "", "display name for the sender")

	pairCmd.AddCommand(pairSetCodeCmd)
	pairCmd.AddCommand(pairListCmd)
	pairCmd.AddCommand(pairAdmitCmd)
	pairCmd.AddCommand(pairRevokeCmd)
}

func runPairSetCode(cmd *cobra.Command, args []string) {
	code := strings.TrimSpace(pairCode)
	if code == "" {
		// Interactive input
		fmt.Print("Enter new pairing code: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading code: %v\n", err)
			os.Exit(1)
		}
		code = strings.TrimSpace(string(raw))
		if code == "" {
			fmt.Fprintln(os.Stderr, "Error: pairing code cannot be empty")
			os.Exit(1)
		}

		fmt.Print("Confirm pairing code: ")
		raw2, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading code: %v\n", err)
			os.Exit(1)
		}
		if string(raw) != string(raw2) {
			fmt.Fprintln(os.Stderr, "Error: codes do not match")
			os.Exit(1)
		}
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	hash, err := pairing.HashCode(code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing code: %v\n", err)
		os.Exit(1)
	}
	cfg.Pairing.CodeHash = hash

	target := loader.GetConfigPath()
	if target == "" {
		home, err := config.GetConfigHome()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving config path: %v\n", err)
			os.Exit(1)
		}
		target = filepath.Join(home, "config.json")
	}

	if err := loader.Save(target, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Pairing code updated (config: %s)\n", target)
	fmt.Println("Already paired senders keep their access; use 'toribot pair revoke' to remove one.")
}

func runPairList(cmd *cobra.Command, args []string) {
	store := openPairingStore()

	entries := store.List()
	if len(entries) == 0 {
		fmt.Println("No paired senders yet.")
		return
	}

	for _, entry := range entries {
		name := entry.Name
		if name == "" {
			name = "-"
		}
		fmt.Printf("%s  %s  paired %s\n", entry.SenderID, name, entry.PairedAt.Format("2006-01-02 15:04"))
	}
}

func runPairAdmit(cmd *cobra.Command, args []string) {
	store := openPairingStore()

	senderID := args[0]
	if err := store.Admit(senderID, strings.TrimSpace(pairName)); err != nil {
		fmt.Fprintf(os.Stderr, "Error admitting sender: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Sender %s admitted\n", senderID)
}

func runPairRevoke(cmd *cobra.Command, args []string) {
	store := openPairingStore()

	senderID := args[0]
	removed, err := store.Revoke(senderID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error revoking sender: %v\n", err)
		os.Exit(1)
	}
	if !removed {
		fmt.Printf("Sender %s was not paired.\n", senderID)
		return
	}

	fmt.Printf("✅ Sender %s revoked\n", senderID)
}

func openPairingStore() *pairing.Store {
	loader := config.NewLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureWorkspace(); err != nil {
		fmt.Fprintf(os.Stderr, "Error preparing workspace: %v\n", err)
		os.Exit(1)
	}

	return pairing.NewStore(cfg.PairingStorePath(), cfg.Pairing.CodeHash)
}
