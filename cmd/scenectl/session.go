package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nadzzz/scenerelay/internal/chat"
	"github.com/nadzzz/scenerelay/internal/config"
	"github.com/nadzzz/scenerelay/internal/dispatch"
	"github.com/nadzzz/scenerelay/internal/message"
	"github.com/nadzzz/scenerelay/internal/scene"
)

// session wires a bus to a dispatcher over an in-memory scene and prints
// what every response did.
type session struct {
	out   io.Writer
	bus   *chat.Bus
	vocab *scene.Vocabulary
	scene *scene.Scene
}

func newSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	config.SetupLoggingTo(config.LoggingConfig{Level: opts.logLevel, Format: "text"}, cmd.ErrOrStderr())

	sceneCfg := config.SceneConfig{ImplicitAdd: opts.implicitAdd}
	if opts.configFile != "" {
		cfg, err := config.Load(opts.configFile)
		if err != nil {
			return nil, err
		}
		sceneCfg = cfg.Scene
		if cmd.Flags().Changed("implicit-add") {
			sceneCfg.ImplicitAdd = opts.implicitAdd
		}
	}
	if opts.vocabulary != "" {
		sceneCfg.VocabularyFile = opts.vocabulary
	}

	vocab, err := scene.LoadVocabulary(sceneCfg.VocabularyFile)
	if err != nil {
		return nil, err
	}

	sc := scene.NewSceneFor(vocab)
	d := dispatch.New(vocab, scene.NewRegistry(vocab, sc.Resolve), dispatch.WithImplicitAdd(sceneCfg.ImplicitAdd))

	s := &session{out: cmd.OutOrStdout(), bus: chat.NewBus(), vocab: vocab, scene: sc}
	s.bus.Subscribe(func(resp *message.Response) {
		s.print(resp, d.Handle(resp))
	})
	return s, nil
}

func (s *session) print(resp *message.Response, rep dispatch.Report) {
	if text := resp.OutputText(); text != "" {
		fmt.Fprintf(s.out, "assistant: %s\n", text)
	}
	for _, m := range rep.Mutations {
		fmt.Fprintf(s.out, "  %s.%s = %v\n", m.Object, m.Attribute, m.Value)
	}
	for _, d := range rep.Diagnostics {
		fmt.Fprintf(s.out, "  [%s] %s\n", d.Code, d.Message)
	}
	if len(rep.Mutations) > 0 {
		s.printScene()
	}
}

func (s *session) printScene() {
	objects := s.vocab.Objects()

	fmt.Fprintln(s.out, "scene:")
	for _, name := range s.vocab.ObjectNames() {
		el, ok := s.scene.Element(objects[name])
		if !ok {
			continue
		}
		visible, _ := el.Attribute(scene.AttrVisible)
		color, ok := el.Attribute(scene.AttrColor)
		if !ok {
			color = "-"
		}
		fmt.Fprintf(s.out, "  %-10s visible=%-5v color=%v\n", name, visible, color)
	}
}

// feedURL maps the relay base URL to its websocket feed endpoint.
func feedURL(relay string) (string, error) {
	u, err := url.Parse(relay)
	if err != nil {
		return "", fmt.Errorf("parsing relay url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported relay url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
