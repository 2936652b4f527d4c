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
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"perkle/internal/models"
	"perkle/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	maxTransactionPage = 500
	maxUploadBytes     = 10 << 20
)

type transactionQuery struct {
	CardConfigId string `form:"card_config_id"`
	StartDate    string `form:"start_date"`
	EndDate      string `form:"end_date"`
	CreditsOnly  bool   `form:"credits_only"`
	Limit        int    `form:"limit,default=100"`
	Offset       int    `form:"offset,default=0"`
}

func (s *Service) uploadTransactions(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, fmt.Errorf("missing CSV file: %w", err))
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file must be a CSV"})
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	result, err := s.deps.Importer.Import(c.Request.Context(), currentUserId(c), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Service) listTransactions(c *gin.Context) {
	var query transactionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}
	if query.Limit < 1 || query.Limit > maxTransactionPage {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxTransactionPage)})
		return
	}
	if query.Offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must not be negative"})
		return
	}

	txns, total, err := s.deps.Store.ListTransactions(c.Request.Context(), store.TransactionFilter{
		UserId:       currentUserId(c),
		CardConfigId: query.CardConfigId,
		StartDate:    query.StartDate,
		EndDate:      query.EndDate,
		CreditsOnly:  query.CreditsOnly,
		Limit:        query.Limit,
		Offset:       query.Offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	c.JSON(http.StatusOK, models.TransactionPage{
		Transactions: txns,
		Total:        total,
		Limit:        query.Limit,
		Offset:       query.Offset,
	})
}
