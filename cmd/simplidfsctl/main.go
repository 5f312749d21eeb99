package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/JacobBorden/SimpliDFS-sub000/pkg/transport"
	"github.com/JacobBorden/SimpliDFS-sub000/pkg/types"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "simplidfsctl",
	Short:   "simplidfsctl is a thin client for a running simplidfsd node",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("addr", "127.0.0.1:9000", "host:port of the node to talk to")

	ctlCmd := &cobra.Command{Use: "ctl", Short: "Operational commands"}
	ctlCmd.AddCommand(healthCmd, repairCmd, rotateKeyCmd)
	rootCmd.AddCommand(ctlCmd)
	rootCmd.AddCommand(verifyCmd)
}

// call dials addr, sends req, and returns the single response payload.
func call(addr string, req types.Payload) (types.Payload, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return types.Payload{}, fmt.Errorf("bad address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return types.Payload{}, fmt.Errorf("bad port in %q: %w", addr, err)
	}

	conn, err := transport.ConnectWithRetry(host, port)
	if err != nil {
		return types.Payload{}, fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	return transport.Call(conn, req)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Print cluster health and Raft role as seen by the target node",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := rootCmd.PersistentFlags().GetString("addr")
		resp, err := call(addr, types.Payload{Type: types.AdminHealth})
		if err != nil {
			return err
		}
		if resp.ErrorCode != int(types.Success) {
			return fmt.Errorf("node reported error code %d", resp.ErrorCode)
		}
		fmt.Println(strings.ReplaceAll(resp.Data, " ", "\n"))
		return nil
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Replica repair commands",
}

var repairRunOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Trigger one repair pass on the target node",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := rootCmd.PersistentFlags().GetString("addr")
		resp, err := call(addr, types.Payload{Type: types.AdminRepairRunOnce})
		if err != nil {
			return err
		}
		if resp.ErrorCode != int(types.Success) {
			return fmt.Errorf("repair pass reported error code %d", resp.ErrorCode)
		}
		fmt.Println("repair pass triggered")
		return nil
	},
}

func init() {
	repairCmd.AddCommand(repairRunOnceCmd)
}

var rotateKeyCmd = &cobra.Command{
	Use:   "rotate-key <window_seconds>",
	Short: "Rotate the cluster encryption key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid window_seconds %q: %w", args[0], err)
		}
		addr, _ := rootCmd.PersistentFlags().GetString("addr")
		resp, err := call(addr, types.Payload{Type: types.AdminRotateKey, Offset: window})
		if err != nil {
			return err
		}
		if resp.ErrorCode != int(types.Success) {
			return fmt.Errorf("key rotation reported error code %d", resp.ErrorCode)
		}
		fmt.Printf("key rotated to version %s, previous key valid for %ds\n", resp.Data, window)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <cid>",
	Short: "Verify a content-addressed chunk is known to the target node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := rootCmd.PersistentFlags().GetString("addr")
		resp, err := call(addr, types.Payload{Type: types.AdminVerifyCID, Data: args[0]})
		if err != nil {
			return err
		}
		if resp.ErrorCode != int(types.Success) {
			fmt.Printf("FAIL: %s not found\n", args[0])
			os.Exit(1)
		}
		fmt.Printf("OK: %s verified\n", args[0])
		return nil
	},
}
