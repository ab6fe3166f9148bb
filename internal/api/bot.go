package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "annotation-survey/internal/application"
	"annotation-survey/internal/domain/entity"
	"annotation-survey/internal/domain/port"
)

const (
	msgStart = `👋 Привет! Я бот для просмотра результатов опроса по разметке изображений.

📋 Команды:
/stats — общая статистика
/session <id> — данные одной сессии
/preview <id> <номер> — рамки сессии поверх изображения
/subscribe — уведомлять о завершённых опросах
/unsubscribe — отключить уведомления
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ /stats покажет количество сессий, рамок и оценок
2️⃣ /session без аргумента попросит прислать id сессии
3️⃣ /preview <id> <номер> пришлёт изображение с рамками участника (номер с 1)
4️⃣ Фото с подписью "<id> <номер>" вернётся с рамками этой сессии

🔔 /subscribe включает уведомления о завершённых опросах`

	msgAwaitingSessionID = "🔎 Отправьте id сессии."
	msgCancelled         = "❌ Операция отменена."
	msgUnknownCommand    = "❓ Неизвестная команда. Используйте /help для справки."
	msgSendCommand       = "📋 Используйте /help, чтобы увидеть список команд."
	msgSessionNotFound   = "🤷 Сессия не найдена."
	msgLoadError         = "⚠️ Не удалось получить данные. Попробуйте позже."
	msgPreviewUsage      = "Использование: /preview <id> <номер изображения>"
	msgPreviewError      = "⚠️ Не удалось построить предпросмотр."
	msgSubscribed        = "🔔 Уведомления включены."
	msgUnsubscribed      = "🔕 Уведомления отключены."
)

// Bot админский Telegram-бот: статистика, просмотр сессий и уведомления о завершении
type Bot struct {
	api         *tgbotapi.BotAPI
	operators   *app.OperatorService
	surveys     *app.SurveyService
	renderer    port.BoxRenderer
	images      entity.ImageSet
	imageDir    string
	adminChatID int64
}

// NewBot создаёт нового бота
func NewBot(token string, operators *app.OperatorService, surveys *app.SurveyService, renderer port.BoxRenderer, images entity.ImageSet, imageDir string, adminChatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:         api,
		operators:   operators,
		surveys:     surveys,
		renderer:    renderer,
		images:      images,
		imageDir:    imageDir,
		adminChatID: adminChatID,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// SurveyCompleted рассылает сводку завершённого опроса подписчикам
func (b *Bot) SurveyCompleted(ctx context.Context, details *entity.SessionDetails) error {
	subs, err := b.operators.Subscribers(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}

	chats := make(map[int64]struct{}, len(subs)+1)
	if b.adminChatID != 0 {
		chats[b.adminChatID] = struct{}{}
	}
	for _, s := range subs {
		chats[s.ChatID] = struct{}{}
	}

	text := "✅ Опрос завершён\n\n" + formatSession(details)
	for chatID := range chats {
		b.sendMessage(chatID, text)
	}
	return nil
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// Посты каналов приходят без отправителя
	if msg.From == nil {
		return
	}

	operator, err := b.operators.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		log.Printf("Error getting operator: %v", err)
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, operator)
		return
	}

	// Обработка фото
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	// Ждём id сессии после /session без аргумента
	if operator.State == entity.StateAwaitingSessionID {
		if _, err := b.operators.Cancel(ctx, msg.From.ID, msg.Chat.ID); err != nil {
			log.Printf("Error saving operator: %v", err)
		}
		b.showSession(ctx, msg.Chat.ID, strings.TrimSpace(msg.Text))
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendCommand)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, operator *entity.Operator) {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		b.setState(ctx, msg, entity.StateIdle)
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "stats":
		b.showStats(ctx, msg.Chat.ID)

	case "session":
		if args == "" {
			if _, err := b.operators.BeginLookup(ctx, msg.From.ID, msg.Chat.ID); err != nil {
				log.Printf("Error saving operator: %v", err)
			}
			b.sendMessage(msg.Chat.ID, msgAwaitingSessionID)
			return
		}
		b.showSession(ctx, msg.Chat.ID, args)

	case "preview":
		sessionID, index, err := parsePreviewArgs(args, len(b.images))
		if err != nil {
			b.sendMessage(msg.Chat.ID, msgPreviewUsage)
			return
		}
		b.sendPreview(ctx, msg.Chat.ID, sessionID, index)

	case "subscribe", "unsubscribe":
		subscribe := msg.Command() == "subscribe"
		if _, err := b.operators.SetSubscribed(ctx, msg.From.ID, msg.Chat.ID, subscribe); err != nil {
			log.Printf("Error saving operator: %v", err)
			b.sendMessage(msg.Chat.ID, msgLoadError)
			return
		}
		if subscribe {
			b.sendMessage(msg.Chat.ID, msgSubscribed)
		} else {
			b.sendMessage(msg.Chat.ID, msgUnsubscribed)
		}

	case "cancel":
		b.setState(ctx, msg, entity.StateIdle)
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handlePhoto накладывает рамки сессии из подписи на присланное фото
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	sessionID, index, err := parsePreviewArgs(msg.Caption, len(b.images))
	if err != nil {
		b.sendMessage(msg.Chat.ID, msgPreviewUsage)
		return
	}

	// Берём файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(photo.FileID)
	if err != nil {
		log.Printf("Error downloading photo: %v", err)
		b.sendMessage(msg.Chat.ID, msgPreviewError)
		return
	}

	b.sendRendered(ctx, msg.Chat.ID, sessionID, index, imageData)
}

func (b *Bot) setState(ctx context.Context, msg *tgbotapi.Message, state entity.OperatorState) {
	if _, err := b.operators.SetState(ctx, msg.From.ID, msg.Chat.ID, state); err != nil {
		log.Printf("Error saving operator: %v", err)
	}
}

func (b *Bot) showStats(ctx context.Context, chatID int64) {
	stats, err := b.surveys.Stats(ctx)
	if err != nil {
		log.Printf("Error loading stats: %v", err)
		b.sendMessage(chatID, msgLoadError)
		return
	}
	b.sendMessage(chatID, formatStats(stats))
}

func (b *Bot) showSession(ctx context.Context, chatID int64, sessionID string) {
	details, err := b.surveys.Session(ctx, sessionID)
	if errors.Is(err, port.ErrSessionNotFound) {
		b.sendMessage(chatID, msgSessionNotFound)
		return
	}
	if err != nil {
		log.Printf("Error loading session %s: %v", sessionID, err)
		b.sendMessage(chatID, msgLoadError)
		return
	}
	b.sendMessage(chatID, formatSession(details))
}

func (b *Bot) sendPreview(ctx context.Context, chatID int64, sessionID string, index int) {
	imageData, err := os.ReadFile(filepath.Join(b.imageDir, filepath.FromSlash(strings.TrimPrefix(b.images.Path(index), "/"))))
	if err != nil {
		log.Printf("Error reading image %d: %v", index, err)
		b.sendMessage(chatID, msgPreviewError)
		return
	}
	b.sendRendered(ctx, chatID, sessionID, index, imageData)
}

func (b *Bot) sendRendered(ctx context.Context, chatID int64, sessionID string, index int, imageData []byte) {
	details, err := b.surveys.Session(ctx, sessionID)
	if errors.Is(err, port.ErrSessionNotFound) {
		b.sendMessage(chatID, msgSessionNotFound)
		return
	}
	if err != nil {
		log.Printf("Error loading session %s: %v", sessionID, err)
		b.sendMessage(chatID, msgLoadError)
		return
	}

	boxes := details.BoxesForImage(index)
	rendered, err := b.renderer.Render(imageData, boxes)
	if err != nil {
		log.Printf("Error rendering preview: %v", err)
		b.sendMessage(chatID, msgPreviewError)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "preview.png", Bytes: rendered})
	photo.Caption = formatPreviewCaption(index, boxes)
	if _, err := b.api.Send(photo); err != nil {
		log.Printf("Error sending photo: %v", err)
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	fileURL := file.Link(b.api.Token)

	resp, err := http.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

// parsePreviewArgs разбирает "<id> <номер>", номер изображения считается с 1
func parsePreviewArgs(args string, total int) (string, int, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", 0, errors.New("expected session id and image number")
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, fmt.Errorf("image number: %w", err)
	}
	if n < 1 || n > total {
		return "", 0, fmt.Errorf("%w: %d", app.ErrImageOutOfRange, n)
	}
	return fields[0], n - 1, nil
}

func formatStats(s *entity.Stats) string {
	var sb strings.Builder
	sb.WriteString("📊 Статистика опроса\n\n")
	fmt.Fprintf(&sb, "Сессий: %d (завершено %d)\n", s.TotalSessions, s.CompletedSessions)
	fmt.Fprintf(&sb, "Рамок: %d\n", s.TotalAnnotations)
	fmt.Fprintf(&sb, "Оценок: %d\n", s.TotalClassifications)

	if len(s.ObjectTypeDistribution) > 0 {
		sb.WriteString("\nПо типам объектов:\n")
		for _, c := range s.ObjectTypeDistribution {
			fmt.Fprintf(&sb, "• %s: %d\n", c.ObjectType.Label(), c.Count)
		}
	}
	if len(s.RatingDistribution) > 0 {
		sb.WriteString("\nПо оценкам:\n")
		for _, r := range s.RatingDistribution {
			fmt.Fprintf(&sb, "• %s: %d\n", r.Rating, r.Count)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatSession(d *entity.SessionDetails) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🆔 %s\n", d.ID)
	fmt.Fprintf(&sb, "Начало: %s\n", d.StartTime.Format(time.DateTime))
	if d.EndTime != nil {
		fmt.Fprintf(&sb, "Конец: %s (%s)\n", d.EndTime.Format(time.DateTime), d.EndTime.Sub(d.StartTime).Round(time.Second))
	}
	if d.Completed {
		sb.WriteString("Статус: завершена\n")
	} else {
		sb.WriteString("Статус: в процессе\n")
	}

	boxes := make([]entity.BoundingBox, 0, len(d.Annotations))
	for _, a := range d.Annotations {
		boxes = append(boxes, entity.BoundingBox{ObjectType: a.ObjectType})
	}
	counts := entity.CountByCategory(boxes)
	fmt.Fprintf(&sb, "Рамок: %d", len(d.Annotations))
	for _, c := range entity.Categories() {
		fmt.Fprintf(&sb, ", %s %d", c.Label(), counts[c])
	}
	sb.WriteString("\n")

	good := 0
	for _, c := range d.Classifications {
		if c.Rating == entity.RatingGood {
			good++
		}
	}
	fmt.Fprintf(&sb, "Оценок: %d (good %d, bad %d)", len(d.Classifications), good, len(d.Classifications)-good)

	return sb.String()
}

func formatPreviewCaption(index int, boxes []entity.BoundingBox) string {
	return fmt.Sprintf("Изображение %d, рамок: %d", index+1, len(boxes))
}

// Проверка реализации интерфейса
var _ port.Notifier = (*Bot)(nil)
