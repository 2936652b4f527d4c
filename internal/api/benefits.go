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
	"net/http"

	"perkle/internal/benefits"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type markUsedRequest struct {
	UserCardId  string           `json:"user_card_id" binding:"required"`
	BenefitSlug string           `json:"benefit_slug" binding:"required"`
	Amount      *decimal.Decimal `json:"amount"`
	Notes       string           `json:"notes"`
}

func (s *Service) benefitStatus(c *gin.Context) {
	includeHidden := c.Query("include_hidden") == "true"
	report, err := s.deps.Engine.Status(c.Request.Context(), currentUserId(c), includeHidden)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Service) detectBenefits(c *gin.Context) {
	result, err := s.deps.Engine.Detect(c.Request.Context(), currentUserId(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Service) markUsed(c *gin.Context) {
	var req markUsedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	record, err := s.deps.Engine.MarkUsed(c.Request.Context(), currentUserId(c), benefits.MarkParams{
		UserCardId:  req.UserCardId,
		BenefitSlug: req.BenefitSlug,
		Amount:      req.Amount,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Service) benefitHistory(c *gin.Context) {
	periods, err := s.deps.Engine.History(c.Request.Context(), currentUserId(c), c.Param("card"), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, periods)
}
