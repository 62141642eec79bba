package notifier

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ChannelConfig declares one named notification channel and its recipients.
type ChannelConfig struct {
	// Name is the identifier rules reference in their notify list.
	Name string `yaml:"name"`
	// Type selects the channel implementation: email, slack, webhook, sms,
	// pagerduty.
	Type string `yaml:"type"`
	// Recipients are expanded into individual delivery targets.
	Recipients []string `yaml:"recipients"`

	Email     *EmailConfig     `yaml:"email,omitempty"`
	Slack     *SlackConfig     `yaml:"slack,omitempty"`
	Webhook   *WebhookConfig   `yaml:"webhook,omitempty"`
	SMS       *SMSConfig       `yaml:"sms,omitempty"`
	PagerDuty *PagerDutyConfig `yaml:"pagerduty,omitempty"`
}

// channelsFile is the top-level YAML document.
type channelsFile struct {
	Channels []ChannelConfig `yaml:"channels"`
}

// LoadChannelsFromFile loads channel configurations from a YAML file.
func LoadChannelsFromFile(path string) ([]ChannelConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open channels file: %w", err)
	}
	defer f.Close()

	return LoadChannels(f)
}

// LoadChannels loads channel configurations from a reader.
func LoadChannels(r io.Reader) ([]ChannelConfig, error) {
	var file channelsFile
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse channels YAML: %w", err)
	}

	for i, cfg := range file.Channels {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid channel at index %d: %w", i, err)
		}
	}

	return file.Channels, nil
}

// Validate checks the channel configuration for errors.
func (c *ChannelConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("channel name is required")
	}
	if len(c.Recipients) == 0 {
		return fmt.Errorf("at least one recipient is required for channel %q", c.Name)
	}
	switch c.Type {
	case "email":
		if c.Email == nil {
			return fmt.Errorf("email settings are required for channel %q", c.Name)
		}
		return c.Email.Validate()
	case "slack":
		if c.Slack == nil {
			return fmt.Errorf("slack settings are required for channel %q", c.Name)
		}
		return c.Slack.Validate()
	case "webhook":
		return nil
	case "sms":
		if c.SMS == nil {
			return fmt.Errorf("sms settings are required for channel %q", c.Name)
		}
		return c.SMS.Validate()
	case "pagerduty":
		return nil
	default:
		return fmt.Errorf("invalid channel type %q for channel %q", c.Type, c.Name)
	}
}

// Build constructs the channel implementation for this configuration.
func (c *ChannelConfig) Build() (Channel, error) {
	switch c.Type {
	case "email":
		return NewEmailChannel(*c.Email)
	case "slack":
		return NewSlackChannel(*c.Slack)
	case "webhook":
		var cfg WebhookConfig
		if c.Webhook != nil {
			cfg = *c.Webhook
		}
		return NewWebhookChannel(cfg), nil
	case "sms":
		return NewSMSChannel(*c.SMS)
	case "pagerduty":
		var cfg PagerDutyConfig
		if c.PagerDuty != nil {
			cfg = *c.PagerDuty
		}
		return NewPagerDutyChannel(cfg), nil
	default:
		return nil, fmt.Errorf("invalid channel type %q", c.Type)
	}
}

// Configure registers every configured channel on the dispatcher and
// unregisters channels that are no longer configured.
func Configure(d *Dispatcher, configs []ChannelConfig) error {
	seen := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		ch, err := cfg.Build()
		if err != nil {
			return fmt.Errorf("build channel %q: %w", cfg.Name, err)
		}
		d.Register(cfg.Name, ch, cfg.Recipients)
		seen[cfg.Name] = true
	}

	for _, name := range d.Names() {
		if !seen[name] {
			d.Unregister(name)
		}
	}
	return nil
}
