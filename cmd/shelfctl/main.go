package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const defaultServer = "http://127.0.0.1:5000"

var httpClientFactory = func() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "shelfctl",
		Short: "Talk to a running gameshelf server",
	}

	rootCmd.PersistentFlags().String("server", defaultServer, "server base URL")

	rootCmd.AddCommand(
		listCmd(),
		showCmd(),
		launchCmd(),
		runCmd(),
		settingsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List games on the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := cmd.Flag("server").Value.String()
			result, err := apiDo(server, http.MethodGet, "/api/games", nil)
			if err != nil {
				return err
			}

			var payload struct {
				Games []struct {
					ID      string `json:"id"`
					Title   string `json:"title"`
					Running bool   `json:"running"`
				} `json:"games"`
			}
			if err := json.Unmarshal(result, &payload); err != nil {
				return fmt.Errorf("decode games: %w", err)
			}
			for _, g := range payload.Games {
				status := ""
				if g.Running {
					status = "\trunning"
				}
				fmt.Printf("%s\t%s%s\n", g.ID, g.Title, status)
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <game>",
		Short: "Show one game as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server := cmd.Flag("server").Value.String()
			result, err := apiDo(server, http.MethodGet, "/api/games/"+args[0], nil)
			if err != nil {
				return err
			}
			fmt.Println(string(result))
			return nil
		},
	}
}

func launchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "launch <game> <launcher>",
		Short: "Launch a specific launcher",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			server := cmd.Flag("server").Value.String()
			mode, _ := cmd.Flags().GetString("mode")

			payload := map[string]interface{}{
				"launcher_id": args[1],
			}
			if mode != "" {
				payload["mode"] = mode
			}
			result, err := apiDo(server, http.MethodPost, "/api/games/"+args[0]+"/launch", payload)
			if err != nil {
				return err
			}
			fmt.Println(string(result))
			return nil
		},
	}
	cmd.Flags().String("mode", "", `"sandboxed" or "normal" (default: game setting)`)
	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <game>",
		Short: "Launch a game that has exactly one launcher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server := cmd.Flag("server").Value.String()
			mode, _ := cmd.Flags().GetString("mode")

			payload := map[string]interface{}{}
			if mode != "" {
				payload["mode"] = mode
			}
			result, err := apiDo(server, http.MethodPost, "/api/games/"+args[0]+"/run", payload)
			if err != nil {
				return err
			}
			fmt.Println(string(result))
			return nil
		},
	}
	cmd.Flags().String("mode", "", `"sandboxed" or "normal" (default: game setting)`)
	return cmd
}

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "settings", Short: "Library settings"}
	cmd.AddCommand(settingsShowCmd())
	cmd.AddCommand(settingsSetCmd())
	return cmd
}

func settingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show server settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := cmd.Flag("server").Value.String()
			result, err := apiDo(server, http.MethodGet, "/api/settings", nil)
			if err != nil {
				return err
			}
			fmt.Println(string(result))
			return nil
		},
	}
}

func settingsSetCmd() *cobra.Command {
	var defaultSandboxed bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update server settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := cmd.Flag("server").Value.String()

			payload := map[string]interface{}{}
			if cmd.Flags().Changed("default-sandboxed") {
				payload["default_sandboxed"] = defaultSandboxed
			}
			if len(payload) == 0 {
				return errors.New("nothing to update")
			}
			result, err := apiDo(server, http.MethodPut, "/api/settings", payload)
			if err != nil {
				return err
			}
			fmt.Println(string(result))
			return nil
		},
	}
	cmd.Flags().BoolVar(&defaultSandboxed, "default-sandboxed", true, "sandbox launches unless a game opts out")
	return cmd
}

func apiDo(server, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, strings.TrimRight(server, "/")+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClientFactory().Do(req)
	if err != nil {
		return nil, fmt.Errorf("call server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var failure struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &failure) == nil && failure.Error != "" {
			return nil, errors.New(failure.Error)
		}
		return nil, fmt.Errorf("status %s", resp.Status)
	}
	return data, nil
}
