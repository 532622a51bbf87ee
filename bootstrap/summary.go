package bootstrap

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kbukum/diarlive/component"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	sectionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// InfrastructureInfo describes a backing service the app connected to.
type InfrastructureInfo struct {
	Name    string
	Type    string // "engine", "store", "queue", "exporter"
	Details string
}

// RouteInfo is a registered HTTP route.
type RouteInfo struct {
	Method string
	Path   string
}

// Summary collects what the app wired during startup and renders it once
// the app is ready.
type Summary struct {
	mu              sync.Mutex
	serviceName     string
	version         string
	startupDuration time.Duration
	infrastructure  []InfrastructureInfo
	routes          []RouteInfo
}

// NewSummary creates an empty summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.mu.Lock()
	s.startupDuration = d
	s.mu.Unlock()
}

// TrackInfrastructure records a backing service.
func (s *Summary) TrackInfrastructure(name, kind, details string) {
	s.mu.Lock()
	s.infrastructure = append(s.infrastructure, InfrastructureInfo{Name: name, Type: kind, Details: details})
	s.mu.Unlock()
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path string) {
	s.mu.Lock()
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path})
	s.mu.Unlock()
}

// Infrastructure returns the tracked backing services.
func (s *Summary) Infrastructure() []InfrastructureInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]InfrastructureInfo(nil), s.infrastructure...)
}

// Render draws the summary with the given health reports.
func (s *Summary) Render(health []component.Health) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	version := s.version
	if version == "" {
		version = "dev"
	}
	b.WriteString("\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s", s.serviceName, version)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  started in %.2fs", s.startupDuration.Seconds())))
	b.WriteString("\n")

	if len(s.infrastructure) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Infrastructure") + "\n")
		for i, inf := range s.infrastructure {
			fmt.Fprintf(&b, "  %s %s %s %s\n", branch(i, len(s.infrastructure)), inf.Name,
				dimStyle.Render("["+inf.Type+"]"), inf.Details)
		}
	}

	if len(health) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Components") + "\n")
		healthy := 0
		for i, h := range health {
			line := fmt.Sprintf("  %s %s %s", branch(i, len(health)), healthMark(h.Status), h.Name)
			if h.Message != "" {
				line += dimStyle.Render(" " + h.Message)
			}
			b.WriteString(line + "\n")
			if h.Status == component.StatusHealthy {
				healthy++
			}
		}
		status := okStyle.Render(fmt.Sprintf("all components healthy (%d/%d)", healthy, len(health)))
		if healthy != len(health) {
			status = warnStyle.Render(fmt.Sprintf("%d/%d components healthy", healthy, len(health)))
		}
		b.WriteString("  " + status + "\n")
	}

	if len(s.routes) > 0 {
		b.WriteString("\n" + sectionStyle.Render(fmt.Sprintf("Routes (%d)", len(s.routes))) + "\n")
		for i, r := range s.routes {
			fmt.Fprintf(&b, "  %s %-6s %s\n", branch(i, len(s.routes)), r.Method, r.Path)
		}
	}
	b.WriteString("\n")
	return b.String()
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthMark(s component.HealthStatus) string {
	switch s {
	case component.StatusHealthy:
		return okStyle.Render("●")
	case component.StatusDegraded:
		return warnStyle.Render("●")
	case component.StatusUnhealthy:
		return failStyle.Render("●")
	default:
		return dimStyle.Render("○")
	}
}
