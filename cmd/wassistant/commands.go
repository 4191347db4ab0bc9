package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wassistant/internal/assistant"
	"wassistant/internal/chat"
	"wassistant/internal/gateway"
	"wassistant/internal/metrics"
	"wassistant/internal/threadstore"
)

type turnFlags struct {
	user  string
	name  string
	image string
}

func (f *turnFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.user, "user", "", "WhatsApp id of the sender (required)")
	cmd.Flags().StringVar(&f.name, "name", "", "display name of the sender")
	cmd.Flags().StringVar(&f.image, "image", "", "path to an image to attach")
	_ = cmd.MarkFlagRequired("user")
}

func (f *turnFlags) displayName() string {
	if f.name == "" {
		return f.user
	}
	return f.name
}

func newChatCmd(root *rootFlags) *cobra.Command {
	tf := &turnFlags{}
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive session as a WhatsApp user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			g, err := gateway.New(cfg)
			if err != nil {
				return err
			}
			defer g.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			if cfg.Admin.Addr != "" {
				go func() {
					if err := metrics.Serve(ctx, cfg.Admin.Addr, g.AdminHandler()); err != nil {
						slog.Error("admin server failed", "addr", cfg.Admin.Addr, "error", err)
					}
				}()
			}
			return g.Run(ctx, os.Stdin, cmd.OutOrStdout(), tf.user, tf.displayName(), tf.image)
		},
	}
	tf.register(cmd)
	return cmd
}

func newReplyCmd(root *rootFlags) *cobra.Command {
	tf := &turnFlags{}
	cmd := &cobra.Command{
		Use:   "reply <message>",
		Short: "Answer a single message and print the reply",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body := strings.TrimSpace(strings.Join(args, " "))
			if body == "" && tf.image == "" {
				return errors.New("a message or --image is required")
			}
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			g, err := gateway.New(cfg)
			if err != nil {
				return err
			}
			defer g.Close()

			reply := g.Execute(cmd.Context(), chat.Request{
				Body:      body,
				UserID:    tf.user,
				Name:      tf.displayName(),
				ImagePath: tf.image,
			})
			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}
	tf.register(cmd)
	return cmd
}

func newThreadCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "thread <wa_id>",
		Short: "Print the thread stored for a WhatsApp id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			store, err := gateway.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			threadID, err := store.Lookup(cmd.Context(), args[0])
			if errors.Is(err, threadstore.ErrNotFound) {
				return fmt.Errorf("no thread stored for %s", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), threadID)
			return nil
		},
	}
}

func newProvisionCmd(root *rootFlags) *cobra.Command {
	var req assistant.ProvisionRequest
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create the assistant (with an optional knowledge file) and print its id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if err := cfg.ValidateCredentials(); err != nil {
				return err
			}
			id, err := gateway.NewClient(cfg).Provision(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			fmt.Fprintln(cmd.ErrOrStderr(), "set OPENAI_ASSISTANT_ID="+id+" to use it")
			return nil
		},
	}
	cmd.Flags().StringVar(&req.KnowledgeFile, "file", "", "knowledge file to upload for file search")
	cmd.Flags().StringVar(&req.Name, "name", assistant.DefaultAssistantName, "assistant name")
	cmd.Flags().StringVar(&req.Model, "model", assistant.DefaultAssistantModel, "assistant model")
	cmd.Flags().StringVar(&req.Instructions, "instructions", "", "assistant instructions (default persona if empty)")
	return cmd
}

func newServeAdminCmd(root *rootFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve-admin",
		Short: "Serve /metrics, /healthz and thread lookups",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Admin.Addr
			}
			if addr == "" {
				addr = ":9090"
			}
			store, err := gateway.OpenStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			return metrics.Serve(cmd.Context(), addr, metrics.NewRouter(metrics.New(), store))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, then :9090)")
	return cmd
}
