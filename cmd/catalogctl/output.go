package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"cardistry-catalog/internal/domains/move/feed"
	sessionModel "cardistry-catalog/internal/domains/session/model"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ade80"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

const progressWidth = 30

func okMark() string {
	return accentStyle.Render("✓")
}

// renderFeed draws the cards as a table, or the empty placeholder.
func renderFeed(view *feed.FeedView) string {
	if view.Empty || len(view.Cards) == 0 {
		msg := view.EmptyMessage
		if msg == "" {
			msg = feed.EmptyMessage
		}
		return mutedStyle.Render(msg)
	}

	rows := make([][]string, 0, len(view.Cards))
	for _, card := range view.Cards {
		image := card.ImageURL
		if image == "" {
			image = card.NoImage
		}
		rows = append(rows, []string{
			card.Name,
			card.Creator,
			card.Year,
			card.Difficulty,
			strings.Join(card.Tags, ", "),
			image,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("NAME", "CREATOR", "YEAR", "DIFFICULTY", "TAGS", "IMAGE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	footer := mutedStyle.Render(fmt.Sprintf("%d of %d moves", len(view.Cards), view.Total))
	return lipgloss.JoinVertical(lipgloss.Left, t.String(), footer)
}

func renderIdentity(sess *sessionModel.Session) string {
	name := lipgloss.NewStyle().Bold(true).Render(sess.Identity.DisplayName)
	email := mutedStyle.Render("<" + sess.Identity.Email + ">")
	expires := mutedStyle.Render("session expires " + sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return lipgloss.JoinVertical(lipgloss.Left, name+" "+email, expires)
}

func renderProgress(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * progressWidth / 100
	bar := accentStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", progressWidth-filled))
	return fmt.Sprintf("uploading %s %3d%%", bar, percent)
}
