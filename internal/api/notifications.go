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

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"perkle/internal/notify"

	"github.com/gin-gonic/gin"
)

const notificationPageSize = 50

func (s *Service) listNotifications(c *gin.Context) {
	unreadOnly := c.Query("unread_only") == "true"
	notifications, err := s.deps.Store.ListNotifications(c.Request.Context(), currentUserId(c), unreadOnly, notificationPageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

func (s *Service) readNotification(c *gin.Context) {
	err := s.deps.Store.MarkNotificationRead(c.Request.Context(), currentUserId(c), c.Param("id"), time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}

func (s *Service) previewDigest(c *gin.Context) {
	digest, err := s.deps.Composer.Preview(c.Request.Context(), currentUserId(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, digest)
}

func (s *Service) sendDigest(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := s.deps.Store.GetUserById(ctx, currentUserId(c))
	if err != nil {
		respondError(c, err)
		return
	}
	err = s.deps.Composer.SendForUser(ctx, user)
	if errors.Is(err, notify.ErrNotSent) {
		reason := strings.TrimPrefix(err.Error(), notify.ErrNotSent.Error()+": ")
		c.JSON(http.StatusOK, gin.H{"sent": false, "message": reason})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true, "message": "digest sent to " + user.Email})
}
