// Package chess replays a game's SAN move list to validate legality and
// convert it to UCI notation for storage, grounded on github.com/notnil/chess.
package chess

import (
	"errors"
	"fmt"

	lib "github.com/notnil/chess"
)

// ErrInvalidPosition is returned when a SAN move is illegal in the
// position it's played from.
var ErrInvalidPosition = errors.New("chess: invalid position")

// SANToUCI replays a sequence of SAN moves from the standard starting
// position and returns the equivalent UCI move list. It fails fast on
// the first illegal move.
func SANToUCI(sanMoves []string) ([]string, error) {
	game := lib.NewGame()
	enc := lib.UCINotation{}
	uci := make([]string, 0, len(sanMoves))

	for i, san := range sanMoves {
		pos := game.Position()
		if err := game.MoveStr(san); err != nil {
			return nil, fmt.Errorf("%w: move %d (%q): %v", ErrInvalidPosition, i, san, err)
		}
		moves := game.Moves()
		uci = append(uci, enc.Encode(pos, moves[len(moves)-1]))
	}
	return uci, nil
}
