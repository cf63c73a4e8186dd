package redis

import (
	"fmt"

	"github.com/rumbify/rumbify/internal/model"
)

// Key prefix for all rumbify data
const keyPrefix = "rumbify"

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// credentialsKey returns the Redis key for the Credentials registered under an email
func credentialsKey(email string) string {
	return fmt.Sprintf("%s:credentials:%s", keyPrefix, email)
}

// sessionKey returns the Redis key for a session slot
func sessionKey(token string) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, token)
}

// partyKey returns the Redis key for a Party
func partyKey(id model.PartyID) string {
	return fmt.Sprintf("%s:party:%s", keyPrefix, id)
}

// partiesIndexKey returns the Redis key for the ZSET of all parties scored by start time
func partiesIndexKey() string {
	return fmt.Sprintf("%s:idx:parties", keyPrefix)
}

// adminPartiesIndexKey returns the Redis key for the ZSET of an admin's parties
func adminPartiesIndexKey(adminID model.UserID) string {
	return fmt.Sprintf("%s:idx:admin_parties:%s", keyPrefix, adminID)
}

// codeKey returns the Redis key for an EntryCode
func codeKey(code string) string {
	return fmt.Sprintf("%s:code:%s", keyPrefix, code)
}

// codesIndexKey returns the Redis key for the SET of every code value
func codesIndexKey() string {
	return fmt.Sprintf("%s:idx:codes", keyPrefix)
}

// partyCodesIndexKey returns the Redis key for the SET of code keys for a party
func partyCodesIndexKey(partyID model.PartyID) string {
	return fmt.Sprintf("%s:idx:party_codes:%s", keyPrefix, partyID)
}

// userCodesIndexKey returns the Redis key for the SET of code keys redeemed by a user
func userCodesIndexKey(userID model.UserID) string {
	return fmt.Sprintf("%s:idx:user_codes:%s", keyPrefix, userID)
}
