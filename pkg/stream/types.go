package stream

import "github.com/lichess-org/deepq/pkg/models"

// wireGame is one game as it arrives on the upstream stream: SAN moves,
// space-separated.
type wireGame struct {
	ID    string `json:"id"`
	White string `json:"white"`
	Black string `json:"black"`
	Emts  []int  `json:"emts"`
	Pgn   string `json:"pgn"`
}

// wireUser carries the flags lila sends alongside a review request; v1
// parses titled/engine/games but neither acts on nor logs them.
type wireUser struct {
	ID     string `json:"id"`
	Titled bool   `json:"titled"`
	Engine bool   `json:"engine"`
	Games  int    `json:"games"`
}

// wireLine is parsed permissively: keepAlive lines have only that field
// set; review-request lines have the rest.
type wireLine struct {
	KeepAlive bool       `json:"keepAlive"`
	T         string     `json:"t"`
	Origin    string     `json:"origin"`
	User      wireUser   `json:"user"`
	Games     []wireGame `json:"games"`
}

func (l wireLine) isReviewRequest() bool {
	return !l.KeepAlive && l.T != ""
}

func (l wireLine) toReviewRequest() (reviewRequest, error) {
	games := make([]gameInputWithSAN, len(l.Games))
	for i, g := range l.Games {
		games[i] = gameInputWithSAN{
			id:    models.NormalizeGameId(g.ID),
			white: userIDOrNil(g.White),
			black: userIDOrNil(g.Black),
			emts:  g.Emts,
			san:   splitSAN(g.Pgn),
		}
	}
	return reviewRequest{
		origin: models.Origin(l.Origin),
		user:   models.NormalizeUserId(l.User.ID),
		games:  games,
	}, nil
}

func userIDOrNil(raw string) *models.UserId {
	if raw == "" {
		return nil
	}
	id := models.NormalizeUserId(raw)
	return &id
}

// reviewRequest is the parsed form of a non-keepalive line, ready to
// hand to the ingestion pipeline once its SAN has been split.
type reviewRequest struct {
	origin models.Origin
	user   models.UserId
	games  []gameInputWithSAN
}

type gameInputWithSAN struct {
	id    models.GameId
	white *models.UserId
	black *models.UserId
	emts  []int
	san   []string
}
