// Package config loads environment settings, per-channel agent
// configuration, and the system prompt template.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Default file locations, relative to the working directory.
const (
	DefaultEnvFile      = ".env"
	DefaultChannelsFile = "channel_configs.json"
	DefaultPromptFile   = "system_prompt.md"
)

// ChannelConfig holds the agent settings for one Slack channel. Cwd and
// PermissionMode are required; everything else is optional and passed
// through to the agent runner untouched.
type ChannelConfig struct {
	Cwd                string   `json:"cwd"`
	PermissionMode     string   `json:"permission_mode"`
	AllowedTools       []string `json:"allowed_tools,omitempty"`
	DisallowedTools    []string `json:"disallowed_tools,omitempty"`
	Model              string   `json:"model,omitempty"`
	MaxTurns           int      `json:"max_turns,omitempty"`
	AppendSystemPrompt string   `json:"append_system_prompt,omitempty"`
	MaxThinkingTokens  int      `json:"max_thinking_tokens,omitempty"`
}

// channelOverride mirrors ChannelConfig with pointer fields so that a
// key present in the JSON overlays the default even when its value is
// empty. An explicit empty required field must reach validation rather
// than silently inherit the default.
type channelOverride struct {
	Cwd                *string   `json:"cwd"`
	PermissionMode     *string   `json:"permission_mode"`
	AllowedTools       *[]string `json:"allowed_tools"`
	DisallowedTools    *[]string `json:"disallowed_tools"`
	Model              *string   `json:"model"`
	MaxTurns           *int      `json:"max_turns"`
	AppendSystemPrompt *string   `json:"append_system_prompt"`
	MaxThinkingTokens  *int      `json:"max_thinking_tokens"`
}

// channelConfigFile is the on-disk shape: a default block plus
// per-channel overrides.
type channelConfigFile struct {
	Default  ChannelConfig              `json:"default"`
	Channels map[string]channelOverride `json:"channels"`
}

// Config is the loaded application configuration.
type Config struct {
	SlackBotToken string
	SlackAppToken string
	ClaudeUserID  string
	SocketPath    string

	channels   channelConfigFile
	promptPath string
}

// ValidationError marks a required per-channel setting as missing. It is
// matched at the relay boundary to produce a configuration-error
// remediation.
type ValidationError struct {
	ChannelID string
	Field     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required %q configuration for channel %s", e.Field, e.ChannelID)
}

// IsValidationError checks whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Load reads the env file (process environment wins over file values),
// the channel configuration file, and records the prompt template path.
// The channel configuration file is required.
func Load(envPath, channelsPath, promptPath string) (*Config, error) {
	// A missing env file is fine; real deployments often use process env only.
	_ = godotenv.Load(envPath)

	cfg := &Config{
		SlackBotToken: os.Getenv("SLACK_BOT_TOKEN"),
		SlackAppToken: os.Getenv("SLACK_APP_TOKEN"),
		ClaudeUserID:  os.Getenv("CLAUDE_USER_ID"),
		SocketPath:    os.Getenv("CCRELAY_SOCKET"),
		promptPath:    promptPath,
	}

	if cfg.SlackBotToken == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN is required")
	}
	if cfg.SlackAppToken == "" {
		return nil, fmt.Errorf("SLACK_APP_TOKEN is required")
	}

	data, err := os.ReadFile(channelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read channel configuration %s: %w", channelsPath, err)
	}
	if err := json.Unmarshal(data, &cfg.channels); err != nil {
		return nil, fmt.Errorf("failed to parse channel configuration %s: %w", channelsPath, err)
	}

	return cfg, nil
}

// ChannelConfig merges the default block with the channel's overrides
// and validates the required fields.
func (c *Config) ChannelConfig(channelID string) (ChannelConfig, error) {
	merged := c.channels.Default

	if override, ok := c.channels.Channels[channelID]; ok {
		mergeChannelConfig(&merged, override)
	}

	if merged.Cwd == "" {
		return ChannelConfig{}, &ValidationError{ChannelID: channelID, Field: "cwd"}
	}
	if merged.PermissionMode == "" {
		return ChannelConfig{}, &ValidationError{ChannelID: channelID, Field: "permission_mode"}
	}

	return merged, nil
}

// mergeChannelConfig overlays every key present in the override onto
// dst. Presence, not value, decides: an explicit empty string overrides
// and is caught by validation.
func mergeChannelConfig(dst *ChannelConfig, override channelOverride) {
	if override.Cwd != nil {
		dst.Cwd = *override.Cwd
	}
	if override.PermissionMode != nil {
		dst.PermissionMode = *override.PermissionMode
	}
	if override.AllowedTools != nil {
		dst.AllowedTools = *override.AllowedTools
	}
	if override.DisallowedTools != nil {
		dst.DisallowedTools = *override.DisallowedTools
	}
	if override.Model != nil {
		dst.Model = *override.Model
	}
	if override.MaxTurns != nil {
		dst.MaxTurns = *override.MaxTurns
	}
	if override.AppendSystemPrompt != nil {
		dst.AppendSystemPrompt = *override.AppendSystemPrompt
	}
	if override.MaxThinkingTokens != nil {
		dst.MaxThinkingTokens = *override.MaxThinkingTokens
	}
}

// ChannelCount returns the number of channels with explicit overrides.
func (c *Config) ChannelCount() int {
	return len(c.channels.Channels)
}

// fallbackPrompt is used when the prompt template file is absent.
const fallbackPrompt = `Follow the user instructions received in Slack.
Target thread is {thread_ts}.
User ID: {user_id}
Channel ID: {channel_id}
`

// SystemPrompt renders the system prompt template, substituting the
// {thread_ts}, {user_id} and {channel_id} placeholders. A missing or
// unreadable template falls back to a built-in prompt.
func (c *Config) SystemPrompt(threadTS, userID, channelID string) string {
	template := fallbackPrompt
	if data, err := os.ReadFile(c.promptPath); err == nil {
		template = string(data)
	}

	return strings.NewReplacer(
		"{thread_ts}", threadTS,
		"{user_id}", userID,
		"{channel_id}", channelID,
	).Replace(template)
}
