package app

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"aixbot/internal/browser"
)

// Page text that marks a broken network path, usually a dead proxy.
var networkErrorKeywords = []string{
	"ERR_SOCKS_CONNECTION_FAILED",
	"ERR_CONNECTION_RESET",
	"ERR_NAME_NOT_RESOLVED",
	"ERR_CONNECTION_TIMED_OUT",
	"无法访问此网站",
	"This site can’t be reached",
	"There is no internet connection",
	"Connection failed",
	"ERR_NETWORK_CHANGED",
	"ERR_INTERNET_DISCONNECTED",
}

// remainingPattern pulls the remaining count out of button text like
// "Place Long (94/100)".
var remainingPattern = regexp.MustCompile(`\((\d+)\s*/\s*\d+\)`)

type marketStage int

const (
	stageWaitOpen marketStage = iota
	stageWaitResult
)

func (s marketStage) String() string {
	if s == stageWaitResult {
		return "wait_result"
	}
	return "wait_open"
}

type marketStatus string

const (
	statusLive    marketStatus = "live"
	statusOffline marketStatus = "offline"
	statusUnknown marketStatus = "unknown"
)

// marketTimings groups the state machine's delays so tests can shrink them.
type marketTimings struct {
	loadDelay      time.Duration
	pollInterval   time.Duration
	popupThrottle  time.Duration
	offlineRefresh time.Duration
	offlineWindow  time.Duration
	offlinePoll    time.Duration
	reopenGrace    time.Duration
	resultTimeout  time.Duration
	stallTimeout   time.Duration
	clickTimeout   time.Duration
	networkWait    time.Duration
	networkSettle  time.Duration
}

func defaultMarketTimings(stallTimeout time.Duration) marketTimings {
	if stallTimeout <= 0 {
		stallTimeout = 15 * time.Minute
	}
	return marketTimings{
		loadDelay:      2 * time.Second,
		pollInterval:   100 * time.Millisecond,
		popupThrottle:  300 * time.Millisecond,
		offlineRefresh: 30 * time.Second,
		offlineWindow:  5 * time.Minute,
		offlinePoll:    1 * time.Second,
		reopenGrace:    4 * time.Second,
		resultTimeout:  40 * time.Second,
		stallTimeout:   stallTimeout,
		clickTimeout:   4 * time.Second,
		networkWait:    10 * time.Second,
		networkSettle:  5 * time.Second,
	}
}

// MarketRunner plays betting rounds on the market page until the daily
// chances run out: it waits for a round to open, places a random long or
// short, then waits the round out before going again.
type MarketRunner struct {
	logger  *zap.Logger
	popups  *PopupHandler
	timings marketTimings

	// pickSide selects long or short; overridden in tests.
	pickSide func() string
}

func NewMarketRunner(logger *zap.Logger, popups *PopupHandler, stallTimeout time.Duration) *MarketRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarketRunner{
		logger:  logger,
		popups:  popups,
		timings: defaultMarketTimings(stallTimeout),
		pickSide: func() string {
			if rand.Intn(2) == 0 {
				return "long"
			}
			return "short"
		},
	}
}

// Run drives the market page until the countdown shows or the remaining
// count hits zero. Returns true when the day's placements are done, false on
// cancellation, a stall, or an unreadable page.
func (m *MarketRunner) Run(r *runCtx, session browser.Session, mainTab browser.Tab, marketURL string) bool {
	_ = mainTab.Activate()
	if err := mainTab.Navigate(marketURL); err != nil {
		r.logger.Warn("Failed to open market page", zap.Error(err))
	}
	if !r.sleep(m.timings.loadDelay) {
		return false
	}

	stage := stageWaitOpen
	stageStart := time.Now()
	lastProgress := time.Now()
	missCount := 0
	var remainingBeforeClick *int
	seenSuccess := false
	var nextPopupCheck time.Time

	for {
		if r.stopped() {
			return false
		}
		if time.Since(lastProgress) > m.timings.stallTimeout {
			r.logger.Warn("No progress on market page, giving up on this window",
				zap.Duration("stall", m.timings.stallTimeout))
			return false
		}

		if now := time.Now(); now.After(nextPopupCheck) {
			m.popups.Sweep(r, session, mainTab.ID())
			nextPopupCheck = now.Add(m.timings.popupThrottle)
		}

		status := m.status(mainTab)
		if status == statusOffline {
			if !m.waitUntilLive(r, mainTab) {
				return false
			}
			lastProgress = time.Now()
			stage = stageWaitOpen
			stageStart = time.Now()
			remainingBeforeClick = nil
			seenSuccess = false
			continue
		}

		// The countdown replaces the placement UI once the day's chances are
		// used up.
		if mainTab.Exists(200*time.Millisecond, marketCountdownMarkers...) {
			r.logger.Info("Countdown showing, placements finished for the day")
			return true
		}

		remaining, ok := m.remainingClicks(mainTab)
		if !ok {
			missCount++
			if missCount%20 == 0 {
				r.logger.Debug("Cannot read remaining count, retrying", zap.Int("misses", missCount))
			}
			if missCount >= 120 {
				r.logger.Warn("Remaining count unreadable for too long, giving up")
				return false
			}
			if !r.sleep(m.timings.pollInterval) {
				return false
			}
			continue
		}
		missCount = 0
		if remaining <= 0 {
			r.logger.Info("No chances remaining")
			return true
		}

		placingOpen := mainTab.Exists(50*time.Millisecond, placingOpenMarkers...)
		success := mainTab.Exists(50*time.Millisecond, placeSuccessMarkers...)
		won := mainTab.Exists(50*time.Millisecond, resultWonMarkers...)
		lost := mainTab.Exists(50*time.Millisecond, resultLostMarkers...)

		r.logger.Debug("Market tick",
			zap.String("stage", stage.String()),
			zap.Int("remaining", remaining),
			zap.Bool("placingOpen", placingOpen),
			zap.Duration("inStage", time.Since(stageStart).Round(time.Second)))

		switch stage {
		case stageWaitOpen:
			if status == statusLive && placingOpen {
				side := m.pickSide()
				r.logger.Info("Round open, placing", zap.String("side", side), zap.Int("remaining", remaining))
				if m.placeBet(mainTab, side) {
					lastProgress = time.Now()
					stage = stageWaitResult
					stageStart = time.Now()
					rem := remaining
					remainingBeforeClick = &rem
					seenSuccess = false
					if !r.sleep(200 * time.Millisecond) {
						return false
					}
					continue
				}
				r.logger.Debug("Placement click failed, retrying next poll")
			}

		case stageWaitResult:
			if success && !seenSuccess {
				seenSuccess = true
				lastProgress = time.Now()
				r.logger.Debug("Placement accepted, waiting for the result")
			}

			reset := false
			switch {
			case won || lost:
				result := "lost"
				if won {
					result = "won"
				}
				r.logger.Info("Round finished", zap.String("result", result))
				reset = true
			case remainingBeforeClick != nil && remaining < *remainingBeforeClick:
				// The result banner sometimes never shows; a dropped count
				// means the placement went through.
				r.logger.Info("Remaining count dropped, round complete",
					zap.Int("before", *remainingBeforeClick),
					zap.Int("after", remaining))
				reset = true
			case placingOpen && time.Since(stageStart) > m.timings.reopenGrace:
				r.logger.Info("Round reopened without a result banner, moving on")
				reset = true
			case time.Since(stageStart) > m.timings.resultTimeout:
				r.logger.Warn("Result wait timed out, resetting for the next round")
				stage = stageWaitOpen
				stageStart = time.Now()
				remainingBeforeClick = nil
				seenSuccess = false
			}
			if reset {
				lastProgress = time.Now()
				stage = stageWaitOpen
				stageStart = time.Now()
				remainingBeforeClick = nil
				seenSuccess = false
				continue
			}
		}

		if !r.sleep(m.timings.pollInterval) {
			return false
		}
	}
}

func (m *MarketRunner) status(tab browser.Tab) marketStatus {
	if tab.Exists(80*time.Millisecond, marketLiveMarkers...) {
		return statusLive
	}
	if tab.Exists(80*time.Millisecond, marketOfflineMarkers...) {
		return statusOffline
	}
	return statusUnknown
}

// waitUntilLive refreshes the page periodically until the market comes back.
func (m *MarketRunner) waitUntilLive(r *runCtx, tab browser.Tab) bool {
	r.logger.Info("Market offline, waiting for it to come back")
	windowStart := time.Now()
	var lastRefresh time.Time

	for {
		if r.stopped() {
			return false
		}
		if m.status(tab) == statusLive {
			r.logger.Info("Market is live again")
			return true
		}

		if m.checkNetworkError(r, tab) {
			lastRefresh = time.Now()
		}

		if time.Since(lastRefresh) >= m.timings.offlineRefresh {
			if err := tab.Reload(); err != nil {
				r.logger.Debug("Offline refresh failed", zap.Error(err))
			}
			lastRefresh = time.Now()
		}
		if time.Since(windowStart) >= m.timings.offlineWindow {
			r.logger.Info("Market still offline, continuing to refresh",
				zap.Duration("waited", time.Since(windowStart).Round(time.Second)))
			windowStart = time.Now()
		}
		if !r.sleep(m.timings.offlinePoll) {
			return false
		}
	}
}

// checkNetworkError reloads the page after a connection failure, usually a
// dead proxy. Returns true when an error page was seen and handled.
func (m *MarketRunner) checkNetworkError(r *runCtx, tab browser.Tab) bool {
	text, err := tab.BodyText()
	if err != nil || text == "" {
		return false
	}
	for _, kw := range networkErrorKeywords {
		if strings.Contains(text, kw) {
			r.logger.Warn("Network error page detected, reloading", zap.String("keyword", kw))
			if !r.sleep(m.timings.networkWait) {
				return false
			}
			if err := tab.Reload(); err != nil {
				r.logger.Debug("Reload after network error failed", zap.Error(err))
			}
			r.sleep(m.timings.networkSettle)
			return true
		}
	}
	return false
}

func (m *MarketRunner) placeBet(tab browser.Tab, side string) bool {
	locs := placeLongButtons
	if side == "short" {
		locs = placeShortButtons
	}
	return tryClick(tab, m.timings.clickTimeout, locs...)
}

// remainingClicks reads the remaining count from both placement buttons and
// takes the smaller value, guarding against one button showing stale text.
func (m *MarketRunner) remainingClicks(tab browser.Tab) (int, bool) {
	var values []int
	for _, loc := range []browser.Locator{placeLongAll, placeShortAll} {
		for _, e := range tab.FindAll(loc) {
			text, err := e.Text()
			if err != nil {
				continue
			}
			match := remainingPattern.FindStringSubmatch(text)
			if match == nil {
				continue
			}
			n, err := strconv.Atoi(match[1])
			if err != nil {
				continue
			}
			values = append(values, n)
		}
	}
	if len(values) == 0 {
		return 0, false
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min, true
}
