package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"weekly-meal-planner/internal/app"
	"weekly-meal-planner/internal/config"
	"weekly-meal-planner/internal/metrics"
	"weekly-meal-planner/internal/planner"
	"weekly-meal-planner/internal/preferences"
	"weekly-meal-planner/internal/recipe"
	"weekly-meal-planner/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// updateTimeout bounds the work done for one update.
const updateTimeout = 2 * time.Minute

const historyMessages = 5

const helpText = `🥗 *Weekly Meal Planner*

/plan - generate a plan for the coming week
/diet <type> - set your diet (vegetarian, non-vegetarian, mixed...)
/calories <n> - set your daily calorie target
/allergies <a, b> - set allergies, or "none" to clear
/history - show your last plans
/shopping - show the shopping list of your last plan`

// Planner is the part of app.App the bot uses.
type Planner interface {
	GeneratePlan(ctx context.Context, req app.PlanRequest) (*app.PlanResult, error)
	History(ctx context.Context, userID string, limit int) ([]planner.HistoryEntry, error)
	SavePreferences(ctx context.Context, userID string, update preferences.Preferences) (*preferences.Stored, error)
	ShoppingList(ctx context.Context, userID string, historyID int64) (*shopping.List, error)
	Usage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
	Health() metrics.SysHealth
}

// Sender delivers messages to Telegram. *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot wraps the Telegram API and the meal planner.
type Bot struct {
	api     Sender
	planner Planner
	cfg     *config.Config
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, p Planner, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Info("webhook set", zap.String("description", resp.Description))

	return newBot(api, p, cfg, log), nil
}

func newBot(api Sender, p Planner, cfg *config.Config, log *zap.Logger) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{api: api, planner: p, cfg: cfg, log: log}
}

// RegisterHandlers adds the webhook and health endpoints to mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhook", b.handleWebhook)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(b.planner.Health())
	})
}

// Wait blocks until every in-flight update has been handled.
func (b *Bot) Wait() { b.wg.Wait() }

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.log.Warn("error parsing update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	if !b.allowed(msg.From.ID) {
		b.log.Warn("unauthorized access attempt",
			zap.Int64("telegram_id", msg.From.ID),
			zap.String("username", msg.From.UserName))
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
		defer cancel()
		b.processMessage(ctx, msg)
	}()
}

func (b *Bot) allowed(id int64) bool {
	return slices.Contains(b.cfg.TelegramAllowedUserIDs, id) || (b.cfg.AdminTelegramID != 0 && id == b.cfg.AdminTelegramID)
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	if !msg.IsCommand() {
		b.reply(chatID, helpText)
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, helpText)
	case "plan":
		b.handlePlan(ctx, userID, chatID)
	case "diet":
		b.handleDiet(ctx, userID, chatID, args)
	case "calories":
		b.handleCalories(ctx, userID, chatID, args)
	case "allergies":
		b.handleAllergies(ctx, userID, chatID, args)
	case "history":
		b.handleHistory(ctx, userID, chatID)
	case "shopping":
		b.handleShopping(ctx, userID, chatID)
	case "metrics":
		if msg.From.ID != b.cfg.AdminTelegramID {
			b.reply(chatID, "⛔ *Access Denied*: Admin only.")
			return
		}
		b.handleMetrics(ctx, chatID)
	default:
		b.reply(chatID, "🤔 Unknown command.\n\n"+helpText)
	}
}

func (b *Bot) handlePlan(ctx context.Context, userID string, chatID int64) {
	sent, err := b.send(chatID, "🧑‍🍳 *Thinking...*\n(Picking recipes for your week)")
	if err != nil {
		return
	}

	res, err := b.planner.GeneratePlan(ctx, app.PlanRequest{UserID: userID})
	if err != nil {
		b.log.Error("error generating plan", zap.String("user_id", userID), zap.Error(err))
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		b.edit(chatID, sent.MessageID, fmt.Sprintf("❌ *Error generating plan:*\n```\n%v\n```", safeErr))
		return
	}

	planText, shoppingText := formatPlanMarkdownParts(res)
	b.edit(chatID, sent.MessageID, planText)
	b.reply(chatID, shoppingText)
}

func (b *Bot) handleDiet(ctx context.Context, userID string, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /diet <type>, e.g. /diet vegetarian")
		return
	}
	b.savePreferences(ctx, userID, chatID, preferences.Preferences{DietType: args})
}

func (b *Bot) handleCalories(ctx context.Context, userID string, chatID int64, args string) {
	n, err := strconv.Atoi(args)
	if err != nil || n <= 0 {
		b.reply(chatID, "Usage: /calories <n>, e.g. /calories 2000")
		return
	}
	b.savePreferences(ctx, userID, chatID, preferences.Preferences{CalorieTarget: n})
}

func (b *Bot) handleAllergies(ctx context.Context, userID string, chatID int64, args string) {
	if args == "" {
		b.reply(chatID, "Usage: /allergies <a, b>, or /allergies none")
		return
	}
	allergies := []string{}
	if !strings.EqualFold(args, "none") {
		allergies = parseList(args)
	}
	b.savePreferences(ctx, userID, chatID, preferences.Preferences{Allergies: allergies})
}

func (b *Bot) savePreferences(ctx context.Context, userID string, chatID int64, update preferences.Preferences) {
	stored, err := b.planner.SavePreferences(ctx, userID, update)
	if err != nil {
		b.log.Error("failed to save preferences", zap.String("user_id", userID), zap.Error(err))
		b.reply(chatID, "❌ Could not save your preferences.")
		return
	}
	b.reply(chatID, formatPreferences(stored.Preferences))
}

func (b *Bot) handleHistory(ctx context.Context, userID string, chatID int64) {
	entries, err := b.planner.History(ctx, userID, historyMessages)
	if err != nil {
		b.log.Error("failed to load history", zap.String("user_id", userID), zap.Error(err))
		b.reply(chatID, "❌ Error fetching history.")
		return
	}
	b.reply(chatID, formatHistory(entries))
}

func (b *Bot) handleShopping(ctx context.Context, userID string, chatID int64) {
	list, err := b.planner.ShoppingList(ctx, userID, 0)
	if err != nil {
		b.log.Error("failed to load shopping list", zap.String("user_id", userID), zap.Error(err))
		b.reply(chatID, "❌ Error fetching shopping list.")
		return
	}
	if list == nil {
		b.reply(chatID, "🛒 No shopping list yet. Send /plan to create one.")
		return
	}
	b.reply(chatID, formatShopping(list.Items))
}

func (b *Bot) handleMetrics(ctx context.Context, chatID int64) {
	usage, err := b.planner.Usage(ctx, 7)
	if err != nil {
		b.log.Error("failed to load metrics", zap.Error(err))
		b.reply(chatID, "❌ Error fetching metrics.")
		return
	}
	b.reply(chatID, formatMetrics(usage, b.planner.Health()))
}

func (b *Bot) send(chatID int64, text string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return sent, err
}

func (b *Bot) reply(chatID int64, text string) { _, _ = b.send(chatID, text) }

func (b *Bot) edit(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("failed to edit message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func esc(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s) }

var slotIcons = map[recipe.MealSlot]string{
	recipe.Breakfast: "🍳",
	recipe.Lunch:     "🥗",
	recipe.Dinner:    "🍲",
}

func formatPlanMarkdownParts(res *app.PlanResult) (string, string) {
	var pb strings.Builder
	pb.WriteString("📅 *Weekly Meal Plan*\n\n")

	totalPrep := 0
	for i, day := range res.MealPlan.Days {
		pb.WriteString(fmt.Sprintf("*%s* (%.0f kcal)\n", planner.Weekdays[i], day.TotalCalories))
		for _, slot := range recipe.Slots {
			meal := day.Meals.Get(slot)
			totalPrep += meal.PrepTime
			pb.WriteString(fmt.Sprintf("%s %s: %s", slotIcons[slot], slot.Title(), esc(meal.Name)))
			if meal.PrepTime > 0 {
				pb.WriteString(fmt.Sprintf(" (%d mins)", meal.PrepTime))
			}
			pb.WriteString("\n")
		}
		pb.WriteString("\n")
	}
	pb.WriteString(fmt.Sprintf("⏱ *Total Prep:* %d mins\n", totalPrep))
	pb.WriteString(fmt.Sprintf("⭐ *Score:* %.1f/10\n", res.Analysis.OverallScore))
	for _, rec := range res.Analysis.Recommendations {
		pb.WriteString(fmt.Sprintf("_%s_\n", esc(rec)))
	}

	return pb.String(), formatShopping(res.ShoppingList)
}

func formatShopping(items map[string]string) string {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	for _, line := range shopping.Lines(items) {
		sb.WriteString(fmt.Sprintf("• %s\n", esc(line)))
	}
	return sb.String()
}

func formatPreferences(p preferences.Preferences) string {
	allergies := "none"
	if len(p.Allergies) > 0 {
		allergies = strings.Join(p.Allergies, ", ")
	}
	return fmt.Sprintf("✅ *Preferences saved*\n\n• Diet: %s\n• Calories: %d kcal/day\n• Allergies: %s",
		esc(p.DietType), p.CalorieTarget, esc(allergies))
}

func formatHistory(entries []planner.HistoryEntry) string {
	if len(entries) == 0 {
		return "🗓 No plans yet. Send /plan to create one."
	}
	var sb strings.Builder
	sb.WriteString("🗓 *Recent Plans*\n\n")
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("• %s: %.0f kcal\n", esc(e.Timestamp), e.MealPlan.TotalCalories()))
	}
	return sb.String()
}

func formatMetrics(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs, %d failed)\n",
			d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.Failures))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
