package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/jobharvest/rod-jobs/internal/js"
)

// DefaultTimeout bounds every wait a Session performs.
const DefaultTimeout = 100 * time.Second

type Options struct {
	// Visualize runs the browser in the foreground instead of headless.
	Visualize bool
	Timeout   time.Duration
	// WarmupURL is opened once right after launch. Empty skips the warm-up.
	WarmupURL string
	// BlockMedia fails image, font and media requests; parsing only needs markup.
	BlockMedia bool
}

// Session is one browser with a single tab. It is not safe for concurrent use:
// exactly one goroutine may drive a Session at a time.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	timeout  time.Duration
	log      *zap.Logger
}

// Launch starts a browser, opens its tab and performs the warm-up navigation.
func Launch(opts Options, log *zap.Logger) (*Session, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	l := launcher.New().
		Headless(!opts.Visualize).
		Leakless(true)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	//Don't download files in the browser, e.g. pdf attachments on job pages
	_ = proto.BrowserSetDownloadBehavior{
		Behavior:         proto.BrowserSetDownloadBehaviorBehaviorDeny,
		BrowserContextID: b.BrowserContextID,
	}.Call(b)

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	s := &Session{launcher: l, browser: b, page: page, timeout: opts.Timeout, log: log}
	s.dismissPopups()
	if opts.BlockMedia {
		s.router = page.HijackRequests()
		s.router.MustAdd("*", func(ctx *rod.Hijack) {
			switch ctx.Request.Type() {
			case proto.NetworkResourceTypeImage, proto.NetworkResourceTypeFont, proto.NetworkResourceTypeMedia:
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
			ctx.ContinueRequest(&proto.FetchContinueRequest{})
		})
		go s.router.Run()
	}
	if opts.WarmupURL != "" {
		if err := s.navigate(context.Background(), opts.WarmupURL); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("warm-up navigation: %w", err)
		}
	}
	return s, nil
}

// dismissPopups rejects JavaScript dialogs and closes windows the page opens,
// so nothing can block the tab between waits.
func (s *Session) dismissPopups() {
	go s.page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		_ = proto.PageHandleJavaScriptDialog{Accept: false, PromptText: ""}.Call(s.page)
	})()

	go s.browser.EachEvent(func(e *proto.PageWindowOpen) {
		s.log.Debug("new window opened, trying to close it", zap.String("url", e.URL))
		time.Sleep(time.Millisecond * 500)
		pages, err := s.browser.Pages()
		if err != nil {
			s.log.Debug("failed getting pages in tab closer", zap.Error(err))
			return
		}
		for _, p := range pages {
			if p.TargetID == s.page.TargetID {
				continue
			}
			info, err := p.Info()
			if err != nil {
				s.log.Debug("failed getting page info in tab closer", zap.Error(err))
				return
			}
			if info.URL == e.URL {
				if err := p.Close(); err != nil {
					s.log.Debug("failed closing page in tab closer", zap.Error(err))
				}
			}
		}
	})()
}

// bounded returns the tab bound to ctx and the session timeout.
func (s *Session) bounded(ctx context.Context) (*rod.Page, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.page.Context(ctx), cancel
}

func (s *Session) navigate(ctx context.Context, url string) error {
	p, cancel := s.bounded(ctx)
	defer cancel()
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

// Load navigates to url and returns the page markup once the previous document
// is gone and readySelector is visible.
func (s *Session) Load(ctx context.Context, url, readySelector string) (string, error) {
	p, cancel := s.bounded(ctx)
	defer cancel()

	if _, err := p.Eval(js.MARK_STALE); err != nil {
		s.log.Debug("could not mark current document", zap.Error(err))
	}
	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := p.Wait(rod.Eval(js.FRESH_AND_VISIBLE, readySelector)); err != nil {
		return "", fmt.Errorf("wait for %s: %w", readySelector, err)
	}
	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("read page source: %w", err)
	}
	return html, nil
}

// Search opens startURL, types keyword into inputSelector and submits it.
func (s *Session) Search(ctx context.Context, startURL, inputSelector, keyword string) error {
	if err := s.navigate(ctx, startURL); err != nil {
		return err
	}

	p, cancel := s.bounded(ctx)
	defer cancel()

	el, err := p.Element(inputSelector)
	if err != nil {
		return fmt.Errorf("find %s: %w", inputSelector, err)
	}
	if err := el.Input(keyword); err != nil {
		return fmt.Errorf("type keyword: %w", err)
	}
	if err := el.Type(input.Enter); err != nil {
		return fmt.Errorf("submit keyword: %w", err)
	}
	return nil
}

// WaitVisible blocks until every selector is visible.
func (s *Session) WaitVisible(ctx context.Context, selectors ...string) error {
	p, cancel := s.bounded(ctx)
	defer cancel()
	if err := p.Wait(rod.Eval(js.IS_VISIBLE, selectors)); err != nil {
		return fmt.Errorf("wait for %v: %w", selectors, err)
	}
	return nil
}

// HTML returns the current page markup.
func (s *Session) HTML() (string, error) {
	return s.page.HTML()
}

// URL returns the address the tab currently shows.
func (s *Session) URL() (string, error) {
	res, err := s.page.Eval(js.CURRENT_URL)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Next clicks the next-page control and waits until the address changed and
// readySelector is visible again.
func (s *Session) Next(ctx context.Context, nextSelector, readySelector string) error {
	prev, err := s.URL()
	if err != nil {
		return fmt.Errorf("read current url: %w", err)
	}

	p, cancel := s.bounded(ctx)
	defer cancel()

	el, err := p.Element(nextSelector)
	if err != nil {
		return fmt.Errorf("find %s: %w", nextSelector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", nextSelector, err)
	}
	if err := p.Wait(rod.Eval(js.URL_CHANGED_AND_VISIBLE, prev, readySelector)); err != nil {
		return fmt.Errorf("wait for page after %s: %w", prev, err)
	}
	return nil
}

// Close shuts the browser down and removes its profile directory.
func (s *Session) Close() error {
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			s.log.Debug("stopping request router", zap.Error(err))
		}
	}
	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	return err
}
