// Package main provides the entry point for the ccrelay Slack bot.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/ccrelay/ccrelay/internal/claudecode"
	"github.com/ccrelay/ccrelay/internal/config"
	"github.com/ccrelay/ccrelay/internal/logging"
	"github.com/ccrelay/ccrelay/internal/relay"
	"github.com/ccrelay/ccrelay/internal/slackbot"
)

const logDir = "logs"

func main() {
	os.Exit(runMain())
}

func runMain() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutting down gracefully...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Printf("Error: %v", err)
		return 1
	}
	return 0
}

func run(ctx context.Context) error {
	cfg, err := config.Load(config.DefaultEnvFile, config.DefaultChannelsFile, config.DefaultPromptFile)
	if err != nil {
		return err
	}

	logger, closeLogs, err := logging.Setup(logDir, os.Getenv("CCRELAY_DEBUG") == "1")
	if err != nil {
		return err
	}
	defer func() {
		_ = closeLogs()
	}()

	api := slack.New(cfg.SlackBotToken, slack.OptionAppLevelToken(cfg.SlackAppToken))
	socket := socketmode.New(api)

	messenger, err := slackbot.NewMessenger(api, logger)
	if err != nil {
		return err
	}

	processor, err := relay.NewProcessor(messenger, relay.WithLogger(logger))
	if err != nil {
		return err
	}

	source := claudecode.NewSocketSource(cfg.SocketPath)

	monitor, err := slackbot.NewMonitor(socket, messenger, processor, source, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("ccrelay started",
		"configured_channels", cfg.ChannelCount(),
		"agent_socket", source.Path())

	return monitor.Run(ctx)
}
