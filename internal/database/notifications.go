/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"perkle/internal/models"

	"github.com/google/uuid"
)

func (s *Queries) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.Id == "" {
		n.Id = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, queryInsertNotification,
		n.Id, n.UserId, n.Type, n.Title, n.Message, n.Read, nullTime(n.ReadAt), n.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("unable to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns the newest notifications first.
func (s *Queries) ListNotifications(ctx context.Context, userId string, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := queryListNotifications
	if unreadOnly {
		query = queryListUnreadNotifications
	}
	rows, err := s.q.QueryContext(ctx, query, userId, limit)
	if err != nil {
		return nil, fmt.Errorf("unable to query notifications: %w", err)
	}
	defer closeRows(rows)

	notifications := []models.Notification{}
	for rows.Next() {
		var (
			n      models.Notification
			readAt sql.NullTime
		)
		if err := rows.Scan(&n.Id, &n.UserId, &n.Type, &n.Title, &n.Message, &n.Read, &readAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan notification row: %w", err)
		}
		n.ReadAt = timePtr(readAt)
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return notifications, nil
}

func (s *Queries) MarkNotificationRead(ctx context.Context, userId, notificationId string, at time.Time) error {
	result, err := s.q.ExecContext(ctx, queryMarkNotificationRead, at.UTC(), notificationId, userId)
	if err != nil {
		return fmt.Errorf("unable to mark notification read: %w", err)
	}
	return requireRow(result, "notification")
}
