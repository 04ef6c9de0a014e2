package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the KakaoTalk webhook gateway",
	Long: `Run the toribot gateway that serves the KakaoTalk skill webhook.

It can run in foreground mode or be installed as a system service.

Examples:
  # Run in foreground (default)
  toribot serve

  # Install as system service (requires sudo/admin privileges)
  sudo toribot serve install

  # Control the service
  sudo toribot serve start
  sudo toribot serve stop
  sudo toribot serve restart
  sudo toribot serve status

  # Uninstall the service
  sudo toribot serve uninstall`,
	Run: runServeDefault,
}

var serveRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run gateway in foreground or as service",
	Long:  `Run the gateway. When installed as a service, this is called automatically.`,
	Run:   runServeRun,
}

var serveInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install gateway as system service",
	Long: `Install the toribot gateway as a system service.

This will register the gateway with the system service manager:
- Linux: systemd
- macOS: launchd
- Windows: Windows Service Manager

The service will be configured to start automatically on system boot.
Requires administrator/root privileges.`,
	Run: runServeInstall,
}

var serveUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall gateway service",
	Long: `Uninstall the toribot gateway system service.

This will remove the service from the system service manager.
The service will be stopped before uninstallation.
Requires administrator/root privileges.`,
	Run: runServeUninstall,
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start gateway service",
	Long: `Start the toribot gateway service.

The service must be installed first using 'toribot serve install'.
Requires administrator/root privileges.`,
	Run: runServeStart,
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop gateway service",
	Long: `Stop the running toribot gateway service.

Requires administrator/root privileges.`,
	Run: runServeStop,
}

var serveRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart gateway service",
	Long: `Restart the toribot gateway service.

This will stop and then start the service.
Requires administrator/root privileges.`,
	Run: runServeRestart,
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check gateway service status",
	Long:  `Check the status of the toribot gateway service.`,
	Run:   runServeStatus,
}

func init() {
	// Add serve subcommands
	serveCmd.AddCommand(serveRunCmd)
	serveCmd.AddCommand(serveInstallCmd)
	serveCmd.AddCommand(serveUninstallCmd)
	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveRestartCmd)
	serveCmd.AddCommand(serveStatusCmd)
}

// runServeDefault runs the gateway in foreground mode (default behavior).
func runServeDefault(cmd *cobra.Command, args []string) {
	fmt.Println("Starting toribot gateway in foreground mode...")
	fmt.Println("To install as a system service, use: toribot serve install")
	fmt.Println()

	runServeForeground()
}

// runServeRun runs the gateway (called by service or manually).
func runServeRun(cmd *cobra.Command, args []string) {
	// Check if running as a service
	isService := os.Getenv("INVOCATION_ID") != "" || // systemd
		os.Getenv("_") == "/bin/launchd" || // launchd
		os.Getenv("SERVICE_NAME") != "" // Windows service

	if isService {
		// Running as service - use service runner
		if err := RunService(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running service: %v\n", err)
			os.Exit(1)
		}
	} else {
		// Running manually - foreground mode
		runServeForeground()
	}
}

// runServeInstall installs the gateway as a system service.
func runServeInstall(cmd *cobra.Command, args []string) {
	if err := InstallService(); err != nil {
		fmt.Fprintf(os.Stderr, "Error installing service: %v\n", err)
		fmt.Fprintln(os.Stderr, "\nNote: Installing system services requires administrator privileges.")
		fmt.Fprintln(os.Stderr, "Please run with sudo (Linux/macOS) or as Administrator (Windows).")
		os.Exit(1)
	}
}

// runServeUninstall uninstalls the gateway service.
func runServeUninstall(cmd *cobra.Command, args []string) {
	if err := UninstallService(); err != nil {
		fmt.Fprintf(os.Stderr, "Error uninstalling service: %v\n", err)
		fmt.Fprintln(os.Stderr, "\nNote: Uninstalling system services requires administrator privileges.")
		fmt.Fprintln(os.Stderr, "Please run with sudo (Linux/macOS) or as Administrator (Windows).")
		os.Exit(1)
	}
}

// runServeStart starts the gateway service.
func runServeStart(cmd *cobra.Command, args []string) {
	if err := StartService(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting service: %v\n", err)
		fmt.Fprintln(os.Stderr, "\nNote: Starting system services requires administrator privileges.")
		fmt.Fprintln(os.Stderr, "Please run with sudo (Linux/macOS) or as Administrator (Windows).")
		os.Exit(1)
	}
}

// runServeStop stops the gateway service.
func runServeStop(cmd *cobra.Command, args []string) {
	if err := StopService(); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping service: %v\n", err)
		fmt.Fprintln(os.Stderr, "\nNote: Stopping system services requires administrator privileges.")
		fmt.Fprintln(os.Stderr, "Please run with sudo (Linux/macOS) or as Administrator (Windows).")
		os.Exit(1)
	}
}

// runServeRestart restarts the gateway service.
func runServeRestart(cmd *cobra.Command, args []string) {
	if err := RestartService(); err != nil {
		fmt.Fprintf(os.Stderr, "Error restarting service: %v\n", err)
		fmt.Fprintln(os.Stderr, "\nNote: Restarting system services requires administrator privileges.")
		fmt.Fprintln(os.Stderr, "Please run with sudo (Linux/macOS) or as Administrator (Windows).")
		os.Exit(1)
	}
}

// runServeStatus checks the gateway service status.
func runServeStatus(cmd *cobra.Command, args []string) {
	if err := StatusService(); err != nil {
		fmt.Fprintf(os.Stderr, "Error checking service status: %v\n", err)
		os.Exit(1)
	}
}
