// siteconnectctl opera un servicio siteconnect: estado y desconexión por la
// API de admin, y utilidades locales para tokens, dominios y llamadas firmadas.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type adminClient struct {
	BaseURL   string
	APIKey    string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
}

func (c *adminClient) do(method, path string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequest(method, strings.TrimRight(c.BaseURL, "/")+path, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("X-Admin-API-Key", c.APIKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, b, err
}

func (c *adminClient) print(w io.Writer, body []byte) {
	if c.OutFormat == "json" {
		var buf bytes.Buffer
		if json.Indent(&buf, body, "", "  ") == nil {
			fmt.Fprintln(w, buf.String())
			return
		}
	}
	fmt.Fprintln(w, strings.TrimSpace(string(body)))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cl := &adminClient{
		BaseURL:   envOr("SITECONNECT_ADMIN_URL", "http://localhost:8080"),
		APIKey:    envOr("SITECONNECT_ADMIN_KEY", ""),
		OutFormat: envOr("SITECONNECT_OUT", "text"),
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}

	root := &cobra.Command{
		Use:          "siteconnectctl",
		Short:        "CLI para el servicio siteconnect",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cl.BaseURL, "admin-api-url", cl.BaseURL, "URL base del servicio (env SITECONNECT_ADMIN_URL)")
	root.PersistentFlags().StringVar(&cl.APIKey, "admin-api-key", cl.APIKey, "X-Admin-API-Key (env SITECONNECT_ADMIN_KEY)")
	root.PersistentFlags().StringVar(&cl.OutFormat, "out", cl.OutFormat, "Formato de salida: json|text")

	root.AddCommand(
		newStatusCmd(cl),
		newConnectURLCmd(cl),
		newDisconnectCmd(cl),
		newCheckDomainCmd(),
		newTokenCmd(),
		newCallCmd(),
	)
	return root
}

func requireKey(cl *adminClient) error {
	if cl.APIKey == "" {
		return fmt.Errorf("falta API key (flag --admin-api-key o env SITECONNECT_ADMIN_KEY)")
	}
	return nil
}

func newStatusCmd(cl *adminClient) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Estado de la conexión (GET /admin/status)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireKey(cl); err != nil {
				return err
			}
			status, body, err := cl.do(http.MethodGet, "/admin/status", nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("status fallo: status=%d body=%s", status, body)
			}
			cl.print(cmd.OutOrStdout(), body)
			return nil
		},
	}
}

func newConnectURLCmd(cl *adminClient) *cobra.Command {
	var (
		userID          int64
		email, login    string
		redirectAfterOK string
	)
	cmd := &cobra.Command{
		Use:   "connect-url",
		Short: "Genera la URL de conexión (GET /admin/connect_url)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireKey(cl); err != nil {
				return err
			}
			path := "/admin/connect_url"
			if redirectAfterOK != "" {
				path += "?redirect=" + url.QueryEscape(redirectAfterOK)
			}
			status, body, err := cl.do(http.MethodGet, path, map[string]string{
				"X-User-ID":    fmt.Sprint(userID),
				"X-User-Email": email,
				"X-User-Login": login,
			})
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("connect-url fallo: status=%d body=%s", status, body)
			}
			if cl.OutFormat == "text" {
				var out struct {
					URL string `json:"url"`
				}
				if json.Unmarshal(body, &out) == nil {
					fmt.Fprintln(cmd.OutOrStdout(), out.URL)
					return nil
				}
			}
			cl.print(cmd.OutOrStdout(), body)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "ID del usuario local")
	cmd.Flags().StringVar(&email, "email", "", "Email del usuario local")
	cmd.Flags().StringVar(&login, "login", "", "Login del usuario local")
	cmd.Flags().StringVar(&redirectAfterOK, "redirect", "", "URL local a la que volver tras conectar")
	return cmd
}

func newDisconnectCmd(cl *adminClient) *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Desconecta el sitio (POST /admin/disconnect)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireKey(cl); err != nil {
				return err
			}
			status, body, err := cl.do(http.MethodPost, "/admin/disconnect", nil)
			if err != nil {
				return err
			}
			if status/100 != 2 {
				return fmt.Errorf("disconnect fallo: status=%d body=%s", status, body)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
