// Package render draws a match for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/ringside/internal/session"
)

// BarWidth is the number of cells in a health bar.
const BarWidth = 20

const (
	barFull  = "█"
	barEmpty = "░"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	FighterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	BarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	RoundStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true)

	EmphasisStyle = lipgloss.NewStyle().Bold(true)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	DangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	fieldStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

var labels = map[session.ActionKind]string{
	session.ActionLight:   "Jab",
	session.ActionMedium:  "Cross",
	session.ActionHeavy:   "Hook",
	session.ActionSpecial: "Uppercut",
	session.ActionDefend:  "Defend",
	session.ActionForfeit: "Forfeit",
	session.ActionRematch: "Rematch",
	session.ActionDismiss: "Main Menu",
}

// Label returns the button caption for kind.
func Label(kind session.ActionKind) string {
	if l, ok := labels[kind]; ok {
		return l
	}
	return kind.String()
}

// HealthBar draws hp out of maxHP as BarWidth cells. Values outside
// [0, maxHP] are clamped.
func HealthBar(hp, maxHP int) string {
	filled := 0
	if maxHP > 0 {
		filled = hp * BarWidth / maxHP
	}
	filled = min(max(filled, 0), BarWidth)
	return strings.Repeat(barFull, filled) + strings.Repeat(barEmpty, BarWidth-filled)
}

// Narrative renders **bold** spans of the match commentary.
func Narrative(s string) string {
	parts := strings.Split(s, "**")
	if len(parts)%2 == 0 {
		// unbalanced markers, leave as written
		return s
	}
	var b strings.Builder
	for i, p := range parts {
		if i%2 == 1 {
			b.WriteString(EmphasisStyle.Render(p))
			continue
		}
		b.WriteString(p)
	}
	return b.String()
}

func fighter(name string, hp, maxHP int) string {
	hp = min(max(hp, 0), maxHP)
	body := fmt.Sprintf("%s\nHP: %d/%d\n%s",
		FighterStyle.Render(name),
		hp, maxHP,
		BarStyle.Render(HealthBar(hp, maxHP)))
	return fieldStyle.Render(body)
}

// Controls lists the buttons offered by the view.
func Controls(allowed []session.ActionKind) string {
	if len(allowed) == 0 {
		return MutedStyle.Render("No controls available")
	}
	buttons := make([]string, 0, len(allowed))
	for _, k := range allowed {
		style := ButtonStyle
		if k == session.ActionForfeit {
			style = DangerStyle
		}
		buttons = append(buttons, style.Render("["+Label(k)+"]"))
	}
	return strings.Join(buttons, " ")
}

// Match renders the full match card.
func Match(v session.View) string {
	maxHP := v.MaxHP
	if maxHP <= 0 {
		maxHP = session.DefaultMaxHP
	}
	owner := v.Owner
	if owner == "" {
		owner = "You"
	}

	fighters := lipgloss.JoinHorizontal(lipgloss.Top,
		fighter(owner, v.PlayerHP, maxHP),
		fighter("Bot", v.OpponentHP, maxHP),
		fieldStyle.Render(RoundStyle.Render("Round")+"\n"+fmt.Sprint(v.Round)),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		TitleStyle.Render("🥊 Boxing Match 🥊"),
		fighters,
		"",
		Narrative(v.Narrative),
		"",
		Controls(v.Allowed),
	)
}
