package clients

import (
	"context"
	"fmt"

	ws "yesod/internal/transport/websocket"
)

const (
	MessageExportProgress       = "export_progress"
	MessageExportComplete       = "export_complete"
	MessageExportFailed         = "export_failed"
	MessageNoticeArchived       = "notice_archived"
	MessageNoticeDelivered      = "notice_delivered"
	MessageNoticeDeliveryFailed = "notice_delivery_failed"
)

// WebSocketClient pushes service events to the user's open websockets. A
// client without a hub drops every event.
type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{
		hub: hub,
	}
}

func (c *WebSocketClient) send(userID int64, msgType, channel string, data map[string]interface{}) error {
	if c.hub == nil {
		return nil
	}
	c.hub.Broadcast(userID, &ws.Message{
		Type:    msgType,
		Channel: fmt.Sprintf("%s#%d", channel, userID),
		Data:    data,
	})
	return nil
}

func (c *WebSocketClient) NotifyExportProgress(ctx context.Context, userID int64, exportID string, progress float64, stage string) error {
	data := map[string]interface{}{
		"id":       exportID,
		"progress": progress,
	}
	if stage != "" {
		data["stage"] = stage
	}
	return c.send(userID, MessageExportProgress, "notify_user_of_progress_export", data)
}

func (c *WebSocketClient) NotifyExportComplete(ctx context.Context, userID int64, exportID, url, filename string) error {
	return c.send(userID, MessageExportComplete, "notify_user_when_export_complete", map[string]interface{}{
		"id":       exportID,
		"url":      url,
		"filename": filename,
		"user_id":  userID,
	})
}

func (c *WebSocketClient) NotifyExportFailed(ctx context.Context, userID int64, exportID, errMsg string) error {
	return c.send(userID, MessageExportFailed, "notify_user_when_export_failed", map[string]interface{}{
		"id":      exportID,
		"message": errMsg,
		"user_id": userID,
	})
}

func (c *WebSocketClient) NotifyNoticeArchived(ctx context.Context, userID int64, noticeID, filename string, pages int) error {
	return c.send(userID, MessageNoticeArchived, "notify_user_when_notice_archived", map[string]interface{}{
		"id":       noticeID,
		"filename": filename,
		"pages":    pages,
	})
}

func (c *WebSocketClient) NotifyNoticeDelivered(ctx context.Context, userID int64, noticeID, recipient string) error {
	return c.send(userID, MessageNoticeDelivered, "notify_user_when_notice_delivered", map[string]interface{}{
		"id":        noticeID,
		"recipient": recipient,
	})
}

func (c *WebSocketClient) NotifyNoticeDeliveryFailed(ctx context.Context, userID int64, noticeID, recipient, errMsg string) error {
	return c.send(userID, MessageNoticeDeliveryFailed, "notify_user_when_notice_delivery_failed", map[string]interface{}{
		"id":        noticeID,
		"recipient": recipient,
		"message":   errMsg,
	})
}
