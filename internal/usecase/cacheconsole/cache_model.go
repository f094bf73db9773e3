package cacheconsole

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"yfmcp/internal/bootstrap/logging"
	"yfmcp/internal/ports"
)

const maxAuditLines = 8

// Store is the part of the cache the console drives.
type Store interface {
	Stats(ctx context.Context) (ports.CacheStats, error)
	ClearExpired(ctx context.Context) (int64, error)
	ClearAll(ctx context.Context) (int64, error)
}

type Options struct {
	// TTLs maps cache class to seconds, shown as reference.
	TTLs            map[string]int
	RefreshInterval time.Duration
}

type cacheModel struct {
	ctx             context.Context
	store           Store
	ttls            map[string]int
	refreshInterval time.Duration
	now             func() time.Time

	stats        ports.CacheStats
	hasStats     bool
	loadedAt     time.Time
	confirmClear bool
	status       string
	auditLogs    []string
}

type statsLoadedMsg struct {
	stats ports.CacheStats
	err   error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action  string
	removed int64
	err     error
}

func NewCacheModel(ctx context.Context, store Store, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ttls := make(map[string]int, len(options.TTLs))
	for class, seconds := range options.TTLs {
		ttls[class] = seconds
	}

	return &cacheModel{
		ctx:             logging.WithAttrs(ctx, slog.String("component", "usecase.cacheconsole")),
		store:           store,
		ttls:            ttls,
		refreshInterval: interval,
		now:             time.Now,
		status:          "loading",
	}
}

func (m *cacheModel) Init() tea.Cmd {
	return tea.Batch(m.loadStatsCmd(), m.tickCmd())
}

func (m *cacheModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadStatsCmd(), m.tickCmd())
	case statsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.stats = msg.stats
		m.hasStats = true
		m.loadedAt = m.now()
		if !m.confirmClear {
			m.status = fmt.Sprintf("refreshed, %d entries", msg.stats.Total)
		}
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			m.appendAuditLog(msg.action, "failed: "+msg.err.Error())
		} else {
			m.status = fmt.Sprintf("%s done, removed %d", msg.action, msg.removed)
			m.appendAuditLog(msg.action, fmt.Sprintf("removed %d", msg.removed))
		}
		return m, m.loadStatsCmd()
	case tea.KeyMsg:
		key := msg.String()
		if key != "C" && m.confirmClear {
			m.confirmClear = false
			m.status = "clear cancelled"
			if key != "q" && key != "ctrl+c" {
				return m, nil
			}
		}
		switch key {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r", "g":
			m.status = "refreshing"
			return m, m.loadStatsCmd()
		case "x":
			m.status = "clearing expired entries..."
			return m, m.clearCmd("clear-expired", m.store.ClearExpired)
		case "C":
			if !m.confirmClear {
				m.confirmClear = true
				m.status = "press C again to remove every entry, any other key cancels"
				return m, nil
			}
			m.confirmClear = false
			m.status = "clearing cache..."
			return m, m.clearCmd("clear-all", m.store.ClearAll)
		}
	}
	return m, nil
}

func (m *cacheModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Cache Console"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf("path=%s refresh=%s", firstNonEmpty(m.stats.Path, "-"), m.refreshInterval)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Entries"))
	builder.WriteString("\n")
	if !m.hasStats {
		builder.WriteString(dimStyle.Render("- no stats yet"))
		builder.WriteString("\n\n")
	} else {
		builder.WriteString(fmt.Sprintf("Total: %d\n", m.stats.Total))
		builder.WriteString(fmt.Sprintf("Valid: %d\n", m.stats.Valid))
		builder.WriteString(fmt.Sprintf("Expired: %d\n", m.stats.Expired))
		builder.WriteString(fmt.Sprintf("Size: %s\n", formatBytes(m.stats.StorageBytes)))
		builder.WriteString(fmt.Sprintf("Loaded: %s\n", m.loadedAt.Format(time.TimeOnly)))
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("TTL Classes"))
	builder.WriteString("\n")
	if len(m.ttls) == 0 {
		builder.WriteString(dimStyle.Render("- none"))
		builder.WriteString("\n")
	} else {
		for _, class := range sortedClasses(m.ttls) {
			builder.WriteString(fmt.Sprintf("- %-16s %s\n", class, time.Duration(m.ttls[class])*time.Second))
		}
	}
	builder.WriteString("\n")

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	if m.confirmClear {
		builder.WriteString(warnStyle.Render("- " + m.status))
	} else {
		builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	}
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: r refresh  x clear expired  C clear all  q quit"))
	return builder.String()
}

func (m *cacheModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *cacheModel) loadStatsCmd() tea.Cmd {
	return func() tea.Msg {
		stats, err := m.store.Stats(m.ctx)
		return statsLoadedMsg{stats: stats, err: err}
	}
}

func (m *cacheModel) clearCmd(action string, clear func(context.Context) (int64, error)) tea.Cmd {
	return func() tea.Msg {
		removed, err := clear(m.ctx)
		if err == nil {
			logging.Info(m.ctx, "cache console action", slog.String("action", action), slog.Int64("removed", removed))
		}
		return actionDoneMsg{action: action, removed: removed, err: err}
	}
}

func (m *cacheModel) appendAuditLog(action string, result string) {
	line := fmt.Sprintf("%s %s %s", m.now().Format(time.TimeOnly), action, result)
	m.auditLogs = append(m.auditLogs, line)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[len(m.auditLogs)-maxAuditLines:]
	}
}

func sortedClasses(ttls map[string]int) []string {
	classes := make([]string, 0, len(ttls))
	for class := range ttls {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if normalized != "" {
			return normalized
		}
	}
	return ""
}
