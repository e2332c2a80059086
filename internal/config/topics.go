package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/afikmenashe/notification-inbox/internal/inbox"
	"github.com/afikmenashe/notification-inbox/internal/reconciler"
	"github.com/afikmenashe/notification-inbox/internal/signals/payables"
)

// EnvPrefix prefixes environment overrides of topic settings, e.g.
// INBOX_TOPICS_PURCHASE_AP_DUE_DUE_SOON_DAYS=14.
const EnvPrefix = "INBOX"

// TopicSettings tune one signal topic.
type TopicSettings struct {
	Enabled      bool     `mapstructure:"enabled"`
	Limit        int      `mapstructure:"limit" validate:"omitempty,min=10,max=500"`
	DueSoonDays  int      `mapstructure:"due_soon_days" validate:"min=1,max=90"`
	ReopenFields []string `mapstructure:"reopen_fields" validate:"dive,required"`
}

// Topics maps every known topic to its settings.
type Topics map[inbox.Topic]TopicSettings

// DefaultTopics returns the settings used when no file overrides them.
func DefaultTopics() Topics {
	return Topics{
		inbox.TopicPurchaseAPDue: {
			Enabled:      true,
			DueSoonDays:  payables.DefaultDueSoonDays,
			ReopenFields: reconciler.DefaultReopenFields[inbox.TopicPurchaseAPDue],
		},
	}
}

// LoadTopics reads topic settings from an optional YAML file at path, then applies
// INBOX_ environment overrides. An empty path yields the defaults plus env overrides.
//
//	topics:
//	  purchase_ap_due:
//	    enabled: true
//	    due_soon_days: 7
//	    reopen_fields: [outstanding_amount]
func LoadTopics(path string) (Topics, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTopics()
	for topic, s := range defaults {
		key := topicKey(topic)
		v.SetDefault(key+".enabled", s.Enabled)
		v.SetDefault(key+".limit", s.Limit)
		v.SetDefault(key+".due_soon_days", s.DueSoonDays)
		v.SetDefault(key+".reopen_fields", s.ReopenFields)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read topics file %s: %w", path, err)
		}
	}

	validate := validator.New()
	topics := make(Topics, len(defaults))
	for topic := range defaults {
		key := topicKey(topic)
		s := TopicSettings{
			Enabled:      v.GetBool(key + ".enabled"),
			Limit:        v.GetInt(key + ".limit"),
			DueSoonDays:  v.GetInt(key + ".due_soon_days"),
			ReopenFields: v.GetStringSlice(key + ".reopen_fields"),
		}
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("invalid settings for topic %s: %w", topic, err)
		}
		topics[topic] = s
	}
	return topics, nil
}

// Enabled returns the enabled topics.
func (t Topics) Enabled() []inbox.Topic {
	var out []inbox.Topic
	for topic, s := range t {
		if s.Enabled {
			out = append(out, topic)
		}
	}
	return out
}

// ReconcilerOptions turns the settings of every topic into reconciler options.
func (t Topics) ReconcilerOptions() []reconciler.Option {
	opts := make([]reconciler.Option, 0, 2*len(t))
	for topic, s := range t {
		opts = append(opts, reconciler.WithReopenFields(topic, s.ReopenFields...))
		if s.Limit > 0 {
			opts = append(opts, reconciler.WithTopicLimit(topic, s.Limit))
		}
	}
	return opts
}

func topicKey(topic inbox.Topic) string {
	return "topics." + strings.ToLower(string(topic))
}
