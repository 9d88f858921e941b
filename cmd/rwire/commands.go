package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"

	"github.com/pallab-js/r-wire/capture"
	"github.com/pallab-js/r-wire/config"
	"github.com/pallab-js/r-wire/frsrc"
	"github.com/pallab-js/r-wire/session"
)

var listInterfacesCmd = &cobra.Command{
	Use:   "list-interfaces",
	Short: "List capturable network interfaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := frsrc.ListInterfaces()
		if err != nil {
			return err
		}

		for _, name := range names {
			fmt.Println(name)
		}

		return nil
	},
}

var (
	detailID   uint64
	exportPath string
	autoName   bool
)

var startCmd = &cobra.Command{
	Use:   "start <interface>",
	Short: "Start a capture session on the named interface until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		emitter := capture.NewChannelEmitter(16)
		st := session.New(config.New(), emitter)

		if err := st.StartCapture(args[0]); err != nil {
			if err.Error() == "PermissionError" {
				fmt.Fprintln(os.Stderr, ansi.Color("permission denied — try running with elevated privileges", "red"))
			}

			return err
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		done := make(chan struct{})
		go func() {
			defer close(done)

			for batch := range emitter.Batches() {
				line, err := json.Marshal(batch)
				if err != nil {
					continue
				}

				fmt.Println(string(line))
			}
		}()

		<-sigCh

		if err := st.StopCapture(); err != nil {
			return err
		}

		if detailID != 0 {
			detail, err := st.GetPacketDetail(detailID)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			} else {
				out, _ := json.MarshalIndent(detail, "", "  ")
				fmt.Println(string(out))
			}
		}

		if autoName && exportPath == "" {
			exportPath = fmt.Sprintf("rwire-%s.pcap", uuid.New().String())
		}

		if exportPath != "" {
			ids := make([]uint64, 0)
			for i := uint64(1); i <= detailID; i++ {
				ids = append(ids, i)
			}

			if n, err := st.ExportPCAP(exportPath, ids); err != nil {
				fmt.Fprintln(os.Stderr, err)
			} else {
				fmt.Printf("exported %d packets to %s\n", n, exportPath)
			}
		}

		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop is a no-op placeholder in this single-process CLI",
	Long: "The command surface's stop_capture operation is meaningful against a " +
		"running session held by a long-lived process; this CLI runs one " +
		"capture per invocation of 'start' and stops it on SIGINT/SIGTERM " +
		"instead, since the external dispatch surface that would let a " +
		"second invocation reach the first's session is out of scope " +
		"(spec.md §1).",
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("no running session in this process; send SIGINT/SIGTERM to the 'start' invocation instead")
	},
}

var detailCmd = &cobra.Command{
	Use:   "detail",
	Short: "Request full dissection for a packet id during a 'start' session",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("pass --detail-id to 'start' to print a packet's detail when the session stops")
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export captured packets to a pcap file when a 'start' session stops",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("pass --export to 'start' to write a pcap file when the session stops")
	},
}

func init() {
	startCmd.Flags().Uint64Var(&detailID, "detail-id", 0, "print full dissection for this packet id on stop")
	startCmd.Flags().StringVar(&exportPath, "export", "", "export all captured packets to this pcap path on stop")
	startCmd.Flags().BoolVar(&autoName, "export-auto-name", false, "when --export is unset, write to rwire-<uuid>.pcap")
}
