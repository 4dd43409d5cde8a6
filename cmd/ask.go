package cmd

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/maximbilan/hivecouncil/internal/cost"
	"github.com/maximbilan/hivecouncil/internal/provider"
	"github.com/maximbilan/hivecouncil/internal/ratelimit"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	askProviders   []string
	askSystem      string
	askTemperature float64
	askMaxTokens   int
	askImage       string
	askParallel    int
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Stream the same prompt to one or more backends",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		providers, err := selectProviders(rt.registry, askProviders)
		if err != nil {
			return err
		}

		req := provider.Request{
			Prompt:       strings.Join(args, " "),
			SystemPrompt: askSystem,
			Temperature:  rt.cfg.DefaultTemperature,
			MaxTokens:    rt.cfg.DefaultMaxTokens,
		}
		if cmd.Flags().Changed("temperature") {
			req.Temperature = askTemperature
		}
		if cmd.Flags().Changed("max-tokens") {
			req.MaxTokens = askMaxTokens
		}
		if askImage != "" {
			if req.ImageData, err = loadImage(askImage); err != nil {
				return err
			}
		}

		var limiter *ratelimit.RateLimiter
		if rt.cfg.RateLimitEnabled {
			limiter = ratelimit.New(rt.cfg.RateLimitRequests, time.Duration(rt.cfg.RateLimitWindow)*time.Second, 0)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if rt.cfg.RequestTimeoutSeconds > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(rt.cfg.RequestTimeoutSeconds)*time.Second)
			defer cancel()
		}

		out := cmd.OutOrStdout()
		var onFragment func(string, string)
		live := len(providers) == 1
		if live {
			fmt.Fprintln(out, answerHeader(providers[0]))
			onFragment = func(_, fragment string) { fmt.Fprint(out, fragment) }
		}

		answers, err := askAll(ctx, providers, req, limiter, askParallel, onFragment)
		if live {
			fmt.Fprintln(out)
		}
		renderAnswers(out, answers, !live)
		if err != nil {
			return err
		}
		if failed := countFailed(answers); failed == len(answers) {
			return fmt.Errorf("all %d providers failed", failed)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringSliceVarP(&askProviders, "provider", "p", nil, "backends to ask (default: every configured backend)")
	askCmd.Flags().StringVarP(&askSystem, "system", "s", "", "system prompt")
	askCmd.Flags().Float64VarP(&askTemperature, "temperature", "t", 0.7, "sampling temperature; overrides default_temperature")
	askCmd.Flags().IntVar(&askMaxTokens, "max-tokens", 2000, "response token limit; overrides default_max_tokens")
	askCmd.Flags().StringVar(&askImage, "image", "", "image file, data URL or http(s) URL to attach")
	askCmd.Flags().IntVar(&askParallel, "parallel", 0, "maximum concurrent streams (0 = no limit)")
	rootCmd.AddCommand(askCmd)
}

// answer is one backend's reply to an ask.
type answer struct {
	provider provider.Provider
	output   string
	err      error
	elapsed  time.Duration
	estimate cost.Estimate
}

// askAll streams req to every provider concurrently, each start gated by
// limiter. A backend failure is recorded on its answer and does not stop the
// others; the returned error is non-nil only if waiting on the limiter was
// cancelled. onFragment, if set, is called from the streaming goroutines.
func askAll(ctx context.Context, providers []provider.Provider, req provider.Request, limiter *ratelimit.RateLimiter, parallel int, onFragment func(name, fragment string)) ([]answer, error) {
	answers := make([]answer, len(providers))

	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, p := range providers {
		answers[i].provider = p
		g.Go(func() error {
			if err := limiter.Wait(ctx); err != nil {
				answers[i].err = err
				return err
			}

			start := time.Now()
			var sb strings.Builder
			for fragment, err := range p.StreamCompletion(ctx, req) {
				if err != nil {
					answers[i].err = err
					break
				}
				sb.WriteString(fragment)
				if onFragment != nil {
					onFragment(p.Name(), fragment)
				}
			}
			answers[i].output = sb.String()
			answers[i].elapsed = time.Since(start)
			answers[i].estimate = cost.For(p, req.Prompt, answers[i].output)
			return nil
		})
	}
	err := g.Wait()
	return answers, err
}

func selectProviders(reg *provider.Registry, names []string) ([]provider.Provider, error) {
	if len(names) == 0 {
		all := reg.All()
		if len(all) == 0 {
			return nil, fmt.Errorf("no providers configured")
		}
		return all, nil
	}

	seen := make(map[string]bool)
	var out []provider.Provider
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		seen[name] = true
		p, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// loadImage returns URLs and data URLs as-is and base64-encodes a local file.
func loadImage(src string) (string, error) {
	if strings.HasPrefix(src, "data:") || strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src, nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func answerHeader(p provider.Provider) string {
	return labelStyle.Render(fmt.Sprintf("%s (%s)", p.Name(), p.Model()))
}

func renderAnswers(w io.Writer, answers []answer, withOutput bool) {
	var total float64
	for _, a := range answers {
		if withOutput {
			fmt.Fprintln(w, answerHeader(a.provider))
			if a.output != "" {
				fmt.Fprintln(w, a.output)
			}
		}
		if a.err != nil {
			fmt.Fprintln(w, errorStyle.Render("✗ "+a.err.Error()))
		}
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%s, %s", a.elapsed.Round(time.Millisecond), a.estimate)))
		fmt.Fprintln(w)
		total += a.estimate.Total
	}
	if len(answers) > 1 {
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Total estimated cost: $%.6f", total)))
	}
}

func countFailed(answers []answer) int {
	n := 0
	for _, a := range answers {
		if a.err != nil {
			n++
		}
	}
	return n
}
