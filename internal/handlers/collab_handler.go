package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"schemaboard/internal/collab"
	"schemaboard/internal/repositories"
	"schemaboard/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origins are already filtered by the CORS middleware; the websocket
	// handshake is a plain GET so the same policy applies.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type CollabHandler struct {
	hub      *collab.Hub
	userRepo *repositories.UserRepository
	log      *logrus.Logger
}

func NewCollabHandler(hub *collab.Hub, userRepo *repositories.UserRepository, log *logrus.Logger) *CollabHandler {
	return &CollabHandler{
		hub:      hub,
		userRepo: userRepo,
		log:      log,
	}
}

// Connect handles GET /api/v1/collab/ws?token=<access_token>. Browsers cannot
// set an Authorization header on a websocket handshake, so the access token
// rides in the query string. Auth failures close the socket with a policy
// violation carrying a machine-readable reason.
func (h *CollabHandler) Connect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	claims, err := utils.VerifyJWT(c.Query("token"), utils.AccessTokenSecret)
	if err != nil {
		reason := "invalid"
		if errors.Is(err, jwt.ErrTokenExpired) {
			reason = "expired"
		}
		closeWith(conn, reason)
		return
	}

	user, err := h.userRepo.FindUserByID(claims.UserID)
	if err != nil || user == nil {
		closeWith(conn, "user-not-found")
		return
	}
	if !user.Verified {
		closeWith(conn, "unverified")
		return
	}

	client := h.hub.NewClient(conn, user.ID, user.Name)
	h.hub.Register(client)
}

func closeWith(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}
