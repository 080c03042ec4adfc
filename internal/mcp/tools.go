package mcp

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/1broseidon/winopen/internal/actionlog"
	"github.com/1broseidon/winopen/internal/config"
	"github.com/1broseidon/winopen/internal/figures"
	"github.com/1broseidon/winopen/internal/ipc"
	"github.com/1broseidon/winopen/internal/opener"
)

const (
	sourceDaemon = "daemon"
	sourceConfig = "config"
	sourceSample = "sample"
)

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	if s.daemon != nil {
		data, err := s.daemon.ListWindows()
		if err == nil {
			out := ListWindowsOutput{Source: sourceDaemon, Windows: make([]WindowRuleInfo, 0, len(data.Windows))}
			for _, w := range data.Windows {
				out.Windows = append(out.Windows, WindowRuleInfo{
					ID:      w.ID,
					Label:   w.Label,
					URL:     w.URL,
					Type:    w.Type,
					Focused: w.Focused,
					Default: w.Default,
					Left:    w.Expressions.Left,
					Top:     w.Expressions.Top,
					Width:   w.Expressions.Width,
					Height:  w.Expressions.Height,
				})
			}
			return nil, out, nil
		}
		if !errors.Is(err, ipc.ErrUnavailable) {
			return nil, ListWindowsOutput{}, err
		}
	}

	defaultID := ""
	if rule, ok := s.config.DefaultRule(); ok {
		defaultID = rule.ID
	}
	out := ListWindowsOutput{Source: sourceConfig, Windows: make([]WindowRuleInfo, 0, len(s.config.Windows))}
	for _, w := range s.config.Windows {
		out.Windows = append(out.Windows, WindowRuleInfo{
			ID:      w.ID,
			Label:   w.Label(),
			URL:     w.URL,
			Type:    w.Type,
			Focused: w.Focused,
			Default: w.ID == defaultID,
			Left:    w.Left,
			Top:     w.Top,
			Width:   w.Width,
			Height:  w.Height,
		})
	}
	return nil, out, nil
}

func (args ResolveFiguresInput) adHoc() (figures.Expressions, bool) {
	exprs := figures.Expressions{Left: args.Left, Top: args.Top, Width: args.Width, Height: args.Height}
	return exprs, exprs != (figures.Expressions{})
}

func (s *Server) handleResolveFigures(_ context.Context, _ *mcpsdk.CallToolRequest, args ResolveFiguresInput) (*mcpsdk.CallToolResult, ResolveFiguresOutput, error) {
	exprs, adHoc := args.adHoc()

	if !args.Sample && s.daemon != nil {
		var data *ipc.ResolveData
		var err error
		if adHoc {
			data, err = s.daemon.ResolveExpressions(exprs, args.Context)
		} else {
			data, err = s.daemon.Resolve(args.Window, args.Context)
		}
		if err == nil {
			return nil, ResolveFiguresOutput{
				Rule:    data.Rule,
				Figures: data.Figures,
				Failed:  data.Failed,
				Bounds:  data.Bounds,
				Context: data.Context,
				Source:  sourceDaemon,
			}, nil
		}
		if !errors.Is(err, ipc.ErrUnavailable) {
			return nil, ResolveFiguresOutput{}, err
		}
	}

	name := "(ad hoc)"
	if !adHoc {
		rule, err := s.lookupRule(args.Window)
		if err != nil {
			return nil, ResolveFiguresOutput{}, err
		}
		name = rule.Label()
		exprs = rule.Expressions
	}
	out, err := resolveSample(exprs, args.Context)
	if err != nil {
		return nil, ResolveFiguresOutput{}, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	out.Rule = name
	s.logger.Log(actionlog.ActionResolve, name,
		zap.String("source", sourceSample),
		zap.Any("figures", out.Figures),
		zap.Strings("failed", out.Failed))
	return nil, out, nil
}

func (s *Server) lookupRule(ref string) (config.WindowRule, error) {
	if ref == "" {
		rule, ok := s.config.DefaultRule()
		if !ok {
			return config.WindowRule{}, fmt.Errorf("no default window rule configured")
		}
		return rule, nil
	}
	rule, ok := s.config.FindRule(ref)
	if !ok {
		return config.WindowRule{}, fmt.Errorf("unknown window rule %q", ref)
	}
	return rule, nil
}

// resolveSample resolves exprs against the sample display with overrides
// applied on top.
func resolveSample(exprs figures.Expressions, overrides map[string]float64) (ResolveFiguresOutput, error) {
	p, err := opener.PreviewSnapshot(config.WindowRule{Expressions: exprs}, opener.SampleSnapshot(), overrides)
	if err != nil {
		return ResolveFiguresOutput{}, err
	}
	out := ResolveFiguresOutput{
		Figures: p.Figures.Ints(),
		Bounds:  p.Bounds,
		Context: p.Context,
		Source:  sourceSample,
	}
	for _, f := range p.Failed {
		out.Failed = append(out.Failed, string(f))
	}
	return out, nil
}

func (s *Server) handleOpenWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args OpenWindowInput) (*mcpsdk.CallToolResult, OpenWindowOutput, error) {
	if s.daemon == nil {
		return nil, OpenWindowOutput{}, ipc.ErrUnavailable
	}
	data, err := s.daemon.OpenWindow(args.Window)
	if err != nil {
		return nil, OpenWindowOutput{}, err
	}
	return nil, OpenWindowOutput{
		Rule:     data.Rule,
		RuleID:   data.RuleID,
		WindowID: data.WindowID,
		Bounds:   data.Bounds,
		Figures:  data.Figures,
	}, nil
}

func (s *Server) handleGetContext(_ context.Context, _ *mcpsdk.CallToolRequest, _ GetContextInput) (*mcpsdk.CallToolResult, GetContextOutput, error) {
	if s.daemon == nil {
		return nil, GetContextOutput{}, ipc.ErrUnavailable
	}
	data, err := s.daemon.GetContext()
	if err != nil {
		return nil, GetContextOutput{}, err
	}
	return nil, GetContextOutput{Display: data.Display, Context: data.Context}, nil
}
