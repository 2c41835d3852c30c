package transform

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"chansync/internal/catalog"
	"chansync/internal/config"
	"chansync/internal/logging"
	"chansync/internal/services"
	"chansync/internal/statestore"
)

// PreRule rewrites catalog items in place before reconciliation. Rules run
// in the order the channel configuration lists them.
type PreRule func(ch config.Channel, list *catalog.List) error

// PostEnv is the mutable state a post-rule operates on after downloads have
// finished and before the final state save.
type PostEnv struct {
	State   *statestore.State
	Records map[string]*catalog.VideoRecord
	Order   []string
	Policy  config.Policy
	Logger  *slog.Logger
}

// PostRule removes items from consideration after reconciliation, either by
// blocking them or by deleting their files outright.
type PostRule func(ch config.Channel, env *PostEnv) error

type preFactory func(arg string) (PreRule, error)
type postFactory func(arg string) (PostRule, error)

var preRegistry = map[string]preFactory{
	"trim_titles":     newTrimTitles,
	"collapse_spaces": newCollapseSpaces,
	"title_case":      newTitleCase,
	"strip_prefix":    newStripPrefix,
	"strip_suffix":    newStripSuffix,
}

var postRegistry = map[string]postFactory{
	"drop_matching":   newDropMatching,
	"delete_matching": newDeleteMatching,
	"max_items":       newMaxItems,
}

// Rules is a channel's resolved transform pipeline.
type Rules struct {
	pre  []PreRule
	post []PostRule
}

// Resolve binds a channel's configured rule names to their implementations.
// Unknown names and malformed arguments are configuration errors.
func Resolve(ch config.Channel) (*Rules, error) {
	rules := &Rules{}
	for _, spec := range ch.PreRules {
		name, arg := splitSpec(spec)
		factory, ok := preRegistry[name]
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "transform", "resolve",
				fmt.Sprintf("channel %s: unknown pre-rule %q", ch.ID, name), nil)
		}
		rule, err := factory(arg)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "transform", "resolve",
				fmt.Sprintf("channel %s: pre-rule %q", ch.ID, spec), err)
		}
		rules.pre = append(rules.pre, rule)
	}
	for _, spec := range ch.PostRules {
		name, arg := splitSpec(spec)
		factory, ok := postRegistry[name]
		if !ok {
			return nil, services.Wrap(services.ErrConfiguration, "transform", "resolve",
				fmt.Sprintf("channel %s: unknown post-rule %q", ch.ID, name), nil)
		}
		rule, err := factory(arg)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "transform", "resolve",
				fmt.Sprintf("channel %s: post-rule %q", ch.ID, spec), err)
		}
		rules.post = append(rules.post, rule)
	}
	return rules, nil
}

// ApplyPre runs the channel's pre-rules against the catalog list.
func (r *Rules) ApplyPre(ch config.Channel, list *catalog.List) error {
	for _, rule := range r.pre {
		if err := rule(ch, list); err != nil {
			return err
		}
	}
	return nil
}

// ApplyPost runs the channel's post-rules.
func (r *Rules) ApplyPost(ch config.Channel, env *PostEnv) error {
	if env.Logger == nil {
		env.Logger = logging.NewNop()
	}
	for _, rule := range r.post {
		if err := rule(ch, env); err != nil {
			return err
		}
	}
	return nil
}

// splitSpec separates "name:arg" into its parts; the arg is optional.
func splitSpec(spec string) (string, string) {
	name, arg, _ := strings.Cut(strings.TrimSpace(spec), ":")
	return name, arg
}

func newTrimTitles(string) (PreRule, error) {
	return func(_ config.Channel, list *catalog.List) error {
		for _, item := range list.Items() {
			item.Title = strings.TrimSpace(item.Title)
		}
		return nil
	}, nil
}

func newCollapseSpaces(string) (PreRule, error) {
	return func(_ config.Channel, list *catalog.List) error {
		for _, item := range list.Items() {
			item.Title = strings.Join(strings.Fields(item.Title), " ")
		}
		return nil
	}, nil
}

func newTitleCase(string) (PreRule, error) {
	caser := cases.Title(language.English)
	return func(_ config.Channel, list *catalog.List) error {
		for _, item := range list.Items() {
			item.Title = caser.String(item.Title)
		}
		return nil
	}, nil
}

func newStripPrefix(arg string) (PreRule, error) {
	if arg == "" {
		return nil, fmt.Errorf("strip_prefix requires an argument")
	}
	return func(_ config.Channel, list *catalog.List) error {
		for _, item := range list.Items() {
			item.Title = strings.TrimSpace(strings.TrimPrefix(item.Title, arg))
		}
		return nil
	}, nil
}

func newStripSuffix(arg string) (PreRule, error) {
	if arg == "" {
		return nil, fmt.Errorf("strip_suffix requires an argument")
	}
	return func(_ config.Channel, list *catalog.List) error {
		for _, item := range list.Items() {
			item.Title = strings.TrimSpace(strings.TrimSuffix(item.Title, arg))
		}
		return nil
	}, nil
}

func newDropMatching(arg string) (PostRule, error) {
	if arg == "" {
		return nil, fmt.Errorf("drop_matching requires an argument")
	}
	needle := strings.ToLower(arg)
	return func(_ config.Channel, env *PostEnv) error {
		for id, record := range env.Records {
			if !strings.Contains(strings.ToLower(record.Title), needle) {
				continue
			}
			env.State.Queued.Remove(id)
			env.State.Saved.Remove(id)
			env.State.Blocked.Add(id)
			env.Logger.Info("rule blocked item",
				logging.String(logging.FieldItemID, id),
				logging.String("title", record.Title),
				logging.String("match", arg),
			)
		}
		return nil
	}, nil
}

func newDeleteMatching(arg string) (PostRule, error) {
	if arg == "" {
		return nil, fmt.Errorf("delete_matching requires an argument")
	}
	needle := strings.ToLower(arg)
	return func(_ config.Channel, env *PostEnv) error {
		for id, record := range env.Records {
			if !strings.Contains(strings.ToLower(record.Title), needle) {
				continue
			}
			env.State.Queued.Remove(id)
			env.State.Saved.Remove(id)
			env.State.Blocked.Add(id)
			if _, err := os.Stat(record.OutputPath); err != nil {
				continue
			}
			if env.Policy.PreventDeletion {
				env.Logger.Info("hypothetical: delete filtered item",
					logging.Bool(logging.FieldDryRun, true),
					logging.String(logging.FieldItemID, id),
					logging.String("path", record.OutputPath),
				)
				continue
			}
			if err := os.Remove(record.OutputPath); err != nil {
				env.Logger.Warn("delete filtered item failed",
					logging.String(logging.FieldItemID, id),
					logging.String("path", record.OutputPath),
					logging.Error(err),
				)
				continue
			}
			env.Logger.Info("delete filtered item",
				logging.String(logging.FieldItemID, id),
				logging.String("path", record.OutputPath),
			)
		}
		return nil
	}, nil
}

func newMaxItems(arg string) (PostRule, error) {
	limit, err := strconv.Atoi(arg)
	if err != nil || limit < 0 {
		return nil, fmt.Errorf("max_items requires a non-negative integer, got %q", arg)
	}
	return func(_ config.Channel, env *PostEnv) error {
		for i, id := range env.Order {
			if i < limit {
				continue
			}
			if env.State.Queued.Contains(id) {
				env.State.Queued.Remove(id)
				env.Logger.Info("rule dequeued item beyond limit",
					logging.String(logging.FieldItemID, id),
					logging.Int("limit", limit),
				)
			}
		}
		return nil
	}, nil
}
