package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"alpha-radar/internal/logging"
	"alpha-radar/internal/model"
)

// TokenAlert 新币告警，Market 可能为空。
type TokenAlert struct {
	Token  model.NewToken
	Market *model.MarketSnapshot
}

// TradeAlert 聪明钱交易告警，Profile 为注册表中的最新画像。
type TradeAlert struct {
	Trade   model.SmartMoneyTrade
	Profile *model.WalletProfile
}

// Notifier 定义告警输送接口。
type Notifier interface {
	NotifyToken(ctx context.Context, alert TokenAlert) error
	NotifyTrade(ctx context.Context, alert TradeAlert) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// NotifyToken 推送新币告警。
func (n *TelegramNotifier) NotifyToken(ctx context.Context, alert TokenAlert) error {
	if err := n.send(ctx, RenderToken(alert)); err != nil {
		return err
	}
	n.logger.Info().Str("token", alert.Token.Address).Msg("新币告警已发送 (Telegram)")
	return nil
}

// NotifyTrade 推送聪明钱交易告警。
func (n *TelegramNotifier) NotifyTrade(ctx context.Context, alert TradeAlert) error {
	if err := n.send(ctx, RenderTrade(alert)); err != nil {
		return err
	}
	n.logger.Info().Str("wallet", logging.ShortAddr(alert.Trade.Wallet)).
		Str("signature", alert.Trade.Signature).
		Msg("交易告警已发送 (Telegram)")
	return nil
}

// send 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) send(ctx context.Context, text string) error {
	payload := map[string]any{
		"chat_id":                  n.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}
	return nil
}

// LogNotifier 仅写日志，未配置 Telegram 时使用。
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier 构造日志告警器。
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

func (n *LogNotifier) NotifyToken(ctx context.Context, alert TokenAlert) error {
	n.logger.Info().Str("alert", RenderToken(alert)).Msg("new token alert")
	return nil
}

func (n *LogNotifier) NotifyTrade(ctx context.Context, alert TradeAlert) error {
	n.logger.Info().Str("alert", RenderTrade(alert)).Msg("smart money alert")
	return nil
}

// RenderToken formats a new-token alert as plain text.
func RenderToken(alert TokenAlert) string {
	tok := alert.Token
	builder := strings.Builder{}
	builder.WriteString("[New Token]\n")
	builder.WriteString(fmt.Sprintf("%s (%s)\n", tok.Name, tok.Symbol))
	builder.WriteString(fmt.Sprintf("Address: %s\n", tok.Address))
	builder.WriteString(fmt.Sprintf("Creator: %s\n", tok.Creator))
	builder.WriteString(fmt.Sprintf("Created: %s UTC\n", tok.CreatedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Initial liquidity: $%s\n", tok.InitialLiquidity.StringFixed(2)))
	if m := alert.Market; m != nil {
		builder.WriteString(fmt.Sprintf("Price: $%s (24h %s%%)\n", m.PriceUSD.String(), m.PriceChange24h.StringFixed(2)))
		builder.WriteString(fmt.Sprintf("Liquidity: $%s  MCap: $%s\n", m.LiquidityUSD.StringFixed(0), m.MarketCapUSD.StringFixed(0)))
		builder.WriteString(fmt.Sprintf("Volume 24h: $%s\n", m.Volume24h.StringFixed(0)))
		for i, h := range m.TopHolders {
			if i == 3 {
				break
			}
			builder.WriteString(fmt.Sprintf("Holder #%d: %s %s%%\n", i+1, logging.ShortAddr(h.Address), h.Percentage.StringFixed(2)))
		}
	}
	return strings.TrimRight(builder.String(), "\n")
}

// RenderTrade formats a smart-money trade alert as plain text.
func RenderTrade(alert TradeAlert) string {
	tr := alert.Trade
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[Smart Money %s]\n", strings.ToUpper(string(tr.Action))))
	builder.WriteString(fmt.Sprintf("Wallet: %s\n", tr.Wallet))
	builder.WriteString(fmt.Sprintf("Token: %s %s\n", tr.TokenSymbol, tr.TokenAddress))
	builder.WriteString(fmt.Sprintf("Amount: %s\n", tr.Amount.String()))
	if tr.PriceUSD.IsPositive() {
		builder.WriteString(fmt.Sprintf("Price: $%s\n", tr.PriceUSD.String()))
	}
	if p := alert.Profile; p != nil {
		builder.WriteString(fmt.Sprintf("Win rate: %.1f%% over %d trades\n", p.WinRate*100, p.TotalTrades))
	}
	builder.WriteString(fmt.Sprintf("Tx: %s", tr.Signature))
	return builder.String()
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
