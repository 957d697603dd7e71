package discord

import (
	"fmt"
	"time"

	"github.com/assist-by/kestrel/internal/domain"
	"github.com/assist-by/kestrel/internal/notification"
)

const footerText = "Assist by Kestrel 🤖"

// SendReference는 새 기준점 생성 알림을 전송합니다
func (c *Client) SendReference(market string, ref domain.ReferencePoint) error {
	var emoji, title string
	switch ref.Direction {
	case domain.DirectionOpen:
		emoji = "🚀"
		title = "매수 기준점"
	case domain.DirectionClose:
		emoji = "🔻"
		title = "매도 기준점"
	default:
		emoji = "⚠️"
		title = "기준점"
	}

	embed := NewEmbed().
		SetTitle(fmt.Sprintf("%s %s: %s", emoji, title, market)).
		SetDescription(fmt.Sprintf(
			"**앵커 시각**: %s\n**목표 가격**: %.4f\n**시퀀스**: #%d",
			ref.AnchorTime.Format("2006-01-02 15:04"), ref.TargetPrice, ref.Sequence)).
		SetColor(notification.GetColorForDirection(ref.Direction)).
		AddField("다음 단계", "하위 타임프레임에서 목표 가격 일치 캔들을 탐색합니다", false).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.signalWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// SendTrade는 원장에 수락된 체결 알림을 전송합니다
func (c *Client) SendTrade(market string, trade domain.Trade) error {
	var emoji string
	color := notification.ColorSuccess
	if trade.Side == domain.SideSell {
		emoji = "💰"
		color = notification.ColorError
	} else {
		emoji = "📈"
	}

	embed := NewEmbed().
		SetTitle(fmt.Sprintf("%s %s 체결: %s", emoji, trade.Side, market)).
		SetDescription(fmt.Sprintf(
			"**가격**: %.4f\n**타임프레임**: %s\n**캔들 시각**: %s\n**시퀀스**: #%d",
			trade.Price, trade.Resolution, trade.Time.Format("2006-01-02 15:04"), trade.Sequence)).
		SetColor(color).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.tradeWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// SendError는 에러 알림을 전송합니다
func (c *Client) SendError(err error) error {
	embed := NewEmbed().
		SetTitle("에러 발생").
		SetDescription(fmt.Sprintf("```%v```", err)).
		SetColor(notification.ColorError).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.errorWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}

// SendInfo는 일반 정보 알림을 전송합니다
func (c *Client) SendInfo(message string) error {
	embed := NewEmbed().
		SetDescription(message).
		SetColor(notification.ColorInfo).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	return c.sendToWebhook(c.infoWebhook, WebhookMessage{
		Embeds: []Embed{*embed},
	})
}
