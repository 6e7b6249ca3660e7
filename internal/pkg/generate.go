package pkg

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// room ids are short enough to read out to a friend.
var roomIDLimit = big.NewInt(100000)

// GenerateRoomID - generates a five digit identifier for a hosted room.
func GenerateRoomID() (string, error) {
	n, err := rand.Int(rand.Reader, roomIDLimit)
	if err != nil {
		return "", fmt.Errorf("failed to generate room id: %w", err)
	}

	return fmt.Sprintf("%05d", n.Int64()), nil
}

// GenerateConnID - generates an identifier for one link between two peers.
func GenerateConnID() string {
	return uuid.NewString()
}
