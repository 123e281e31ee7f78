package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// DefaultRunTimeout bounds a single headless run.
const DefaultRunTimeout = 20 * time.Second

// Result is everything observed while a document ran headlessly.
type Result struct {
	Messages []Message
	Dialogs  []string
	Console  []string
}

// Outcome returns the first terminal message, if any.
func (r *Result) Outcome() (Message, bool) {
	for _, m := range r.Messages {
		if m.Terminal() {
			return m, true
		}
	}
	return Message{}, false
}

// Errors returns the error messages in arrival order.
func (r *Result) Errors() []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Type == TypeError {
			out = append(out, m)
		}
	}
	return out
}

// ErrNoOutcome is returned when a run ends without a ready or error message.
var ErrNoOutcome = errors.New("sandbox did not report ready or error")

// HeadlessRunner executes documents in headless Chrome.
type HeadlessRunner struct {
	// RemoteURL is the DevTools endpoint of a running browser, for example
	// http://localhost:9222. Empty launches a local headless Chrome.
	RemoteURL string
	Timeout   time.Duration
	// Settle keeps collecting messages for this long after the outcome so
	// that errors raised after mount are observed.
	Settle time.Duration
	Debug  bool
}

// Run starts a browser, executes doc in it and collects its messages.
func (r *HeadlessRunner) Run(ctx context.Context, doc *Document) (*Result, error) {
	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if r.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, r.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
		)
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	}
	defer cancelAlloc()

	var ctxOpts []chromedp.ContextOption
	if r.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(log.Printf))
	}
	browserCtx, cancel := chromedp.NewContext(allocCtx, ctxOpts...)
	defer cancel()

	return r.RunIn(browserCtx, doc)
}

// RunIn executes doc in a new tab of an existing chromedp browser context.
func (r *HeadlessRunner) RunIn(browserCtx context.Context, doc *Document) (*Result, error) {
	if doc == nil {
		return nil, errors.New("run: nil document")
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRunTimeout
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	ctx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	res := &Result{}
	var mu sync.Mutex
	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			mu.Lock()
			res.Dialogs = append(res.Dialogs, ev.Message)
			mu.Unlock()
			go chromedp.Run(ctx, page.HandleJavaScriptDialog(true))
		case *cdpruntime.EventConsoleAPICalled:
			args := make([]string, 0, len(ev.Args))
			for _, arg := range ev.Args {
				args = append(args, string(arg.Value))
			}
			mu.Lock()
			res.Console = append(res.Console, fmt.Sprintf("%s: %s", ev.Type, strings.Join(args, " ")))
			mu.Unlock()
		}
	})

	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, doc.HTML).Do(ctx)
		}),
	)
	if err != nil {
		return r.snapshot(res, &mu, nil), fmt.Errorf("load generation %d: %w", doc.Generation, err)
	}

	var last []Message
	var settleUntil time.Time
	for {
		msgs, err := readOutbox(ctx)
		if err == nil {
			last = msgs
		} else if ctx.Err() == nil {
			return r.snapshot(res, &mu, last), fmt.Errorf("read sandbox messages: %w", err)
		}

		if ctx.Err() != nil {
			if !settleUntil.IsZero() {
				return r.snapshot(res, &mu, last), nil
			}
			return r.snapshot(res, &mu, last), fmt.Errorf("generation %d: %w", doc.Generation, ErrNoOutcome)
		}

		if _, done := (&Result{Messages: last}).Outcome(); done {
			if settleUntil.IsZero() {
				settleUntil = time.Now().Add(r.Settle)
			}
			if !time.Now().Before(settleUntil) {
				return r.snapshot(res, &mu, last), nil
			}
		}

		select {
		case <-ctx.Done():
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (r *HeadlessRunner) snapshot(res *Result, mu *sync.Mutex, msgs []Message) *Result {
	mu.Lock()
	defer mu.Unlock()
	return &Result{
		Messages: msgs,
		Dialogs:  append([]string(nil), res.Dialogs...),
		Console:  append([]string(nil), res.Console...),
	}
}

// readOutbox reads window.__mintOutbox and validates every entry.
func readOutbox(ctx context.Context) ([]Message, error) {
	var payload string
	if err := chromedp.Run(ctx, chromedp.Evaluate(`JSON.stringify(window.__mintOutbox || [])`, &payload)); err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(raw))
	for _, item := range raw {
		m, err := DecodeMessage(item)
		if err != nil {
			return msgs, err
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
