package lark

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"

	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/domain/entity"
)

// NotifierConfig holds the Lark app credentials and the target group chat
type NotifierConfig struct {
	AppID     string
	AppSecret string
	ChatID    string
	BaseURL   string // empty uses the SDK default
}

// Notifier posts committed invoices to a Lark group chat
type Notifier struct {
	client *lark.Client
	chatID string
	logger *zap.Logger
}

// NewNotifier creates a notifier
func NewNotifier(cfg NotifierConfig, logger *zap.Logger) *Notifier {
	opts := []lark.ClientOptionFunc{
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lark.WithOpenBaseUrl(cfg.BaseURL))
	}

	return &Notifier{
		client: lark.NewClient(cfg.AppID, cfg.AppSecret, opts...),
		chatID: cfg.ChatID,
		logger: logger,
	}
}

// InvoiceCommitted sends a text summary of inv to the chat
func (n *Notifier) InvoiceCommitted(ctx context.Context, inv entity.Invoice) error {
	content, err := json.Marshal(map[string]string{"text": FormatCommitted(inv)})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType("chat_id").
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(n.chatID).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.client.Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send message",
			zap.String("chat_id", n.chatID),
			zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	if !resp.Success() {
		n.logger.Error("API returned failure",
			zap.String("chat_id", n.chatID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	n.logger.Info("Invoice notification sent",
		zap.String("invoice_id", inv.ID),
		zap.String("chat_id", n.chatID))
	return nil
}

// FormatCommitted renders the notification text for a committed invoice
func FormatCommitted(inv entity.Invoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New invoice %s from %s\n", inv.InvoiceNo, inv.ClientName)
	fmt.Fprintf(&b, "Amount: %s (tax %s)\n", inv.Amount.StringFixed(2), inv.TaxAmount.StringFixed(2))
	fmt.Fprintf(&b, "Issued %s, due %s\n", inv.Date, inv.DueDate)
	fmt.Fprintf(&b, "Status: %s | Type: %s", inv.Status, inv.Type)
	return b.String()
}

var _ port.Notifier = (*Notifier)(nil)
