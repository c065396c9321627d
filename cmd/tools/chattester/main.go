package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zhouzirui/aria/backend/internal/analysis/writing"
	"github.com/zhouzirui/aria/backend/internal/app"
	"github.com/zhouzirui/aria/backend/internal/config"
	"github.com/zhouzirui/aria/backend/internal/service/chat"
	"github.com/zhouzirui/aria/backend/internal/service/conversation"
)

var (
	cfgFile   string
	providers string
	personaID string
	userName  string
	message   string
	style     string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "chattester",
	Short: "在终端里直接调试回复流水线",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			log.Debugf("[chattester] 无法加载 .env，改用系统环境变量: %v", err)
		}
		if verbose {
			log.SetLevel(log.DebugLevel)
		} else {
			log.SetLevel(log.WarnLevel)
		}
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send one message, or start a REPL when --message is empty",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		services, err := app.Build(cmd.Context(), cfg, chat.NewService())
		if err != nil {
			return err
		}

		if strings.TrimSpace(message) != "" {
			return send(cmd.Context(), services.Orchestrator, message)
		}
		return repl(cmd.Context(), services.Orchestrator)
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text]",
	Short: "Run the writing analyzer on a passage",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		services, err := app.Build(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		s, err := writing.ParseStyle(style)
		if err != nil {
			return err
		}
		passage := strings.Join(args, " ")
		result, err := services.Writing.Analyze(passage, s)
		if err != nil {
			return err
		}
		fmt.Printf("%+v\n", result)
		if rw := services.Rewriter.Rewrite(cmd.Context(), passage, s); rw.Text != "" {
			fmt.Printf("improved (%s): %s\n", rw.Provider, rw.Text)
		} else {
			fmt.Println("improved: (no provider answered)")
		}
		return nil
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Print the intent and sentiment of a message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		services, err := app.Build(cmd.Context(), cfg, nil)
		if err != nil {
			return err
		}
		text := strings.Join(args, " ")
		res := services.Classifier.Classify(text)
		fmt.Printf("intent=%s confidence=%.2f source=%s sentiment=%s\n",
			res.Label, res.Confidence, res.Source, services.Sentiment.Analyze(text).Label)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, same keys as the environment")
	rootCmd.PersistentFlags().StringVar(&providers, "providers", "", "override COMPLETION_PROVIDERS, e.g. ollama,huggingface")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log provider attempts")

	chatCmd.Flags().StringVarP(&message, "message", "m", "", "message to send; empty starts a REPL")
	chatCmd.Flags().StringVar(&personaID, "persona", "", "persona id (aria, quill, sol)")
	chatCmd.Flags().StringVar(&userName, "name", "", "display name used in replies")

	analyzeCmd.Flags().StringVar(&style, "style", "formal", "formal, creative, technical or casual")

	rootCmd.AddCommand(chatCmd, analyzeCmd, classifyCmd)
}

func loadConfig() (*config.Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %q: %w", cfgFile, err)
		}
	}
	if providers != "" {
		v.Set("COMPLETION_PROVIDERS", providers)
	}
	return config.LoadFrom(v)
}

func send(ctx context.Context, orch *conversation.Orchestrator, text string) error {
	start := time.Now()
	reply, err := orch.Handle(ctx, conversation.Inbound{
		UserID:      "cli",
		DisplayName: userName,
		PersonaID:   personaID,
		Text:        text,
	})
	if err != nil {
		return err
	}

	fmt.Println(reply.Response)
	fmt.Printf("  [%s %.2f | sentiment=%s mood=%s | provider=%s | %s]\n",
		reply.Intent, reply.Confidence, reply.Sentiment, reply.Mood, reply.Provider, time.Since(start).Round(time.Millisecond))
	if verbose {
		for _, a := range reply.Attempts {
			fmt.Printf("    %s ok=%v %dms %s\n", a.Provider, a.Succeeded, a.LatencyMs, a.Error)
		}
	}
	return nil
}

func repl(ctx context.Context, orch *conversation.Orchestrator) error {
	fmt.Println("输入消息后回车，/quit 退出")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}
		if err := send(ctx, orch, line); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
