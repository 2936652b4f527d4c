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
)

type addCardRequest struct {
	CardConfigId    string `json:"card_config_id" binding:"required"`
	Nickname        string `json:"nickname"`
	CardAnniversary string `json:"card_anniversary"`
}

type updateCardRequest struct {
	Nickname        *string `json:"nickname"`
	CardAnniversary *string `json:"card_anniversary"`
	Active          *bool   `json:"active"`
}

type benefitSettingRequest struct {
	BenefitSlug string  `json:"benefit_slug" binding:"required"`
	Muted       *bool   `json:"muted"`
	Notes       *string `json:"notes"`
}

func (s *Service) availableCards(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Catalog.ListAll())
}

func (s *Service) listMyCards(c *gin.Context) {
	cards, err := s.deps.Engine.ListCards(c.Request.Context(), currentUserId(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cards)
}

func (s *Service) addMyCard(c *gin.Context) {
	var req addCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	card, err := s.deps.Engine.AddCard(c.Request.Context(), currentUserId(c), benefits.AddCardParams{
		CardConfigId:    req.CardConfigId,
		Nickname:        req.Nickname,
		CardAnniversary: req.CardAnniversary,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

func (s *Service) updateMyCard(c *gin.Context) {
	var req updateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	card, err := s.deps.Engine.UpdateCard(c.Request.Context(), currentUserId(c), c.Param("id"), benefits.UpdateCardParams{
		Nickname:        req.Nickname,
		CardAnniversary: req.CardAnniversary,
		Active:          req.Active,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (s *Service) deleteMyCard(c *gin.Context) {
	if err := s.deps.Engine.RemoveCard(c.Request.Context(), currentUserId(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Service) listBenefitSettings(c *gin.Context) {
	settings, err := s.deps.Engine.BenefitSettings(c.Request.Context(), currentUserId(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Service) updateBenefitSetting(c *gin.Context) {
	var req benefitSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	setting, err := s.deps.Engine.UpdateBenefitSetting(c.Request.Context(), currentUserId(c), c.Param("id"),
		req.BenefitSlug, req.Muted, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}
