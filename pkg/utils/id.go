package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

func NewID() string { return uuid.NewString() }

// NewResetToken 返回明文令牌（发给用户）和它的 sha256（入库）
func NewResetToken() (plain, hashed string) {
	plain = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	return plain, HashToken(plain)
}

func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
