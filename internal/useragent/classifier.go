package useragent

import (
	"strings"

	"github.com/mssola/useragent"
	"github.com/samber/lo"

	"github.com/joshdurbin/linkpulse/internal/domain"
)

// Classifier maps a raw User-Agent header to a device class, browser and OS
type Classifier interface {
	Classify(raw string) domain.DeviceInfo
}

// Parser classifies with mssola/useragent
type Parser struct{}

// NewParser creates a parser-backed classifier
func NewParser() *Parser {
	return &Parser{}
}

// Classify always yields exactly one of mobile, tablet or desktop
func (p *Parser) Classify(raw string) domain.DeviceInfo {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.DeviceInfo{DeviceType: domain.DeviceDesktop}
	}

	ua := useragent.New(raw)
	browser, _ := ua.Browser()

	return domain.DeviceInfo{
		DeviceType: deviceType(ua, strings.ToLower(raw)),
		Browser:    browser,
		OS:         osFamily(ua.OSInfo().Name),
		Bot:        ua.Bot(),
	}
}

func deviceType(ua *useragent.UserAgent, lower string) domain.DeviceType {
	switch {
	case ua.Bot():
		return domain.DeviceDesktop
	case isTablet(ua, lower):
		return domain.DeviceTablet
	case ua.Mobile():
		return domain.DeviceMobile
	default:
		return domain.DeviceDesktop
	}
}

// tabletTokens mark tablets in the UA comment. "Tablet PC" on Windows desktops is not one.
var tabletTokens = []string{"ipad", "kindle", "silk/", "playbook", "(tablet;", "; tablet;"}

// the parser reports Android tablets as mobile; they omit the "Mobile" token
func isTablet(ua *useragent.UserAgent, lower string) bool {
	if ua.Platform() == "iPad" {
		return true
	}
	if lo.ContainsBy(tabletTokens, func(token string) bool { return strings.Contains(lower, token) }) {
		return true
	}
	return strings.Contains(lower, "android") && !strings.Contains(lower, "mobile")
}

// osFamily folds the parser's iOS spellings ("iPhone OS", and "OS" for iPads) into one name
func osFamily(name string) string {
	switch name {
	case "OS", "iPhone OS":
		return "iOS"
	default:
		return name
	}
}

var _ Classifier = (*Parser)(nil)
