package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/siteconnect/internal/domain"
	"github.com/dropDatabas3/siteconnect/internal/gateway"
	"github.com/dropDatabas3/siteconnect/internal/jwt"
	"github.com/dropDatabas3/siteconnect/internal/validation"
)

// ====================================================================================
// check-domain
// ====================================================================================

func newCheckDomainCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "check-domain <domain|url>",
		Short: "Verifica si el dominio puede ser alcanzado por el servicio remoto",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			host := validation.HostOf(args[0])
			if err := validation.IsUsableDomain(host, force); err != nil {
				return fmt.Errorf("%s: %s", domain.Kind(err), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", host)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "omite los chequeos salvo dominio vacío")
	return cmd
}

// ====================================================================================
// token sign | verify
// ====================================================================================

func newTokenCmd() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Firma y verifica tokens X_AUTH (HS256)",
	}

	var signKey, payload string
	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "Firma un payload JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var v json.RawMessage
			if err := json.Unmarshal([]byte(payload), &v); err != nil {
				return fmt.Errorf("payload no es JSON válido: %w", err)
			}
			tok, err := jwt.Encode(v, []byte(signKey))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	signCmd.Flags().StringVar(&signKey, "key", "", "Clave de firma (access token)")
	signCmd.Flags().StringVar(&payload, "payload", `{"blog_id":0}`, "Payload JSON")
	_ = signCmd.MarkFlagRequired("key")

	var verifyKey string
	verifyCmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Verifica la firma e imprime el payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := jwt.Decode(strings.TrimSpace(args[0]), []byte(verifyKey))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
	verifyCmd.Flags().StringVar(&verifyKey, "key", "", "Clave de firma (access token)")
	_ = verifyCmd.MarkFlagRequired("key")

	tokenCmd.AddCommand(signCmd, verifyCmd)
	return tokenCmd
}

// ====================================================================================
// call
// ====================================================================================

func newCallCmd() *cobra.Command {
	var (
		key       string
		blogID    int64
		method    string
		params    []string
		timeout   time.Duration
		redirects int
		insecure  bool
	)
	cmd := &cobra.Command{
		Use:   "call <remote-url>",
		Short: "Hace una llamada firmada con X_AUTH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form, err := parseParams(params)
			if err != nil {
				return err
			}
			client := gateway.NewClient(gateway.StaticCredentials{Token: key, Site: blogID}, gateway.Options{
				Timeout:            timeout,
				Redirection:        redirects,
				InsecureSkipVerify: insecure,
			})

			req := gateway.Args{URL: args[0], Method: strings.ToUpper(method)}
			if len(form) > 0 {
				if req.Method == http.MethodGet || req.Method == http.MethodHead {
					u, err := url.Parse(req.URL)
					if err != nil {
						return err
					}
					q := u.Query()
					for k, vs := range form {
						for _, v := range vs {
							q.Add(k, v)
						}
					}
					u.RawQuery = q.Encode()
					req.URL = u.String()
				} else {
					req.Body = []byte(form.Encode())
					req.Headers = http.Header{"Content-Type": {"application/x-www-form-urlencoded"}}
				}
			}

			resp, err := client.RemoteRequest(context.Background(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "status=%d\n", resp.StatusCode)
			fmt.Fprintln(cmd.OutOrStdout(), string(resp.Body))
			if resp.StatusCode/100 != 2 {
				return fmt.Errorf("remote respondió %d", resp.StatusCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Access token usado como clave de firma")
	cmd.Flags().Int64Var(&blogID, "blog-id", 0, "blog_id del payload")
	cmd.Flags().StringVar(&method, "method", gateway.DefaultMethod, "Método HTTP")
	cmd.Flags().StringArrayVar(&params, "param", nil, "Parámetro k=v (repetible)")
	cmd.Flags().DurationVar(&timeout, "timeout", gateway.DefaultTimeout, "Timeout de la llamada")
	cmd.Flags().IntVar(&redirects, "redirection", gateway.DefaultRedirection, "Redirects a seguir")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "No verificar TLS")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

// parseParams convierte ["k=v", ...] en url.Values.
func parseParams(kvs []string) (url.Values, error) {
	out := url.Values{}
	for _, kv := range kvs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("param inválido %q (esperado k=v)", kv)
		}
		out.Add(k, v)
	}
	return out, nil
}
