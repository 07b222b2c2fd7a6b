package controller

import (
	"errors"
	"log"

	"github.com/RSG-Group/Chess/internal/model"
	"github.com/RSG-Group/Chess/internal/service"
	"github.com/RSG-Group/Chess/internal/ws"
	"github.com/gofiber/fiber/v2"
)

type GameController struct {
	gameService *service.GameService
}

func NewGameController(gameService *service.GameService) *GameController {
	return &GameController{gameService: gameService}
}

type createGameRequest struct {
	AutoPlay bool   `json:"autoPlay"`
	Color    string `json:"color"`
	FEN      string `json:"fen"`
}

// statusFor maps service and engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrNotGameOwner):
		return fiber.StatusForbidden
	case errors.Is(err, model.ErrNotYourTurn),
		errors.Is(err, model.ErrGameOver),
		errors.Is(err, model.ErrPromotionPending),
		errors.Is(err, model.ErrNoPromotion):
		return fiber.StatusConflict
	case errors.Is(err, model.ErrIllegalMove),
		errors.Is(err, model.ErrOutOfBounds),
		errors.Is(err, model.ErrNoPiece),
		errors.Is(err, model.ErrInvalidPromotion),
		errors.Is(err, model.ErrInvalidFEN):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

func errorResponse(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("request %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func (gc *GameController) CreateGame(c *fiber.Ctx) error {
	playerID := c.Locals("playerID").(string)

	var req createGameRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
	}
	opts := service.CreateOptions{AutoPlay: req.AutoPlay, FEN: req.FEN}
	switch model.Color(req.Color) {
	case "":
	case model.White, model.Black:
		opts.HumanColor = model.Color(req.Color)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "color must be W or B",
		})
	}

	gameID, state, err := gc.gameService.CreateGame(playerID, opts)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Game created",
		"game_id": gameID,
		"state":   state,
	})
}

func (gc *GameController) GetGameState(c *fiber.Ctx) error {
	gameState, err := gc.gameService.GetGameState(c.Params("gameId"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(gameState)
}

func (gc *GameController) GetFEN(c *fiber.Ctx) error {
	gameState, err := gc.gameService.GetGameState(c.Params("gameId"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"fen":        gameState.FEN,
		"fenHistory": gameState.FENHistory,
	})
}

func (gc *GameController) LegalMoves(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	playerID := c.Locals("playerID").(string)
	from := c.Query("from")

	moves, err := gc.gameService.LegalMoves(gameID, playerID, from)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(ws.LegalMovesPayload{Square: from, Moves: moves})
}

func (gc *GameController) MakeMove(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	playerID := c.Locals("playerID").(string)

	var move ws.MovePayload
	if err := c.BodyParser(&move); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid move body",
		})
	}
	state, err := gc.gameService.HandleMove(gameID, playerID, move)
	if err != nil && !errors.Is(err, model.ErrReplyFailed) {
		return errorResponse(c, err)
	}
	if err != nil {
		// the player's move stood, only the reply failed
		return c.JSON(fiber.Map{
			"state": state,
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"state": state})
}

func (gc *GameController) Promote(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	playerID := c.Locals("playerID").(string)

	var promote ws.PromotePayload
	if err := c.BodyParser(&promote); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid promotion body",
		})
	}
	state, err := gc.gameService.HandlePromotion(gameID, playerID, promote)
	if err != nil && !errors.Is(err, model.ErrReplyFailed) {
		return errorResponse(c, err)
	}
	if err != nil {
		return c.JSON(fiber.Map{
			"state": state,
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"state": state})
}
