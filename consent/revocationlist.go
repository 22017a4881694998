package consent

import (
	"fmt"

	"github.com/bluele/gcache"
	"github.com/fiware/idm-consent/model"
)

const revocationListSize = 10000

/**
* Tombstones for revoked consents. Without them, a revoked consent would be
* indistinguishable from a client that never asked for one, and the gate
* would let an outstanding token pass as first contact. A tombstone lives as
* long as the longest validity policy, no token issued before the revocation
* can outlive it. Recording a new consent for the pair clears the tombstone.
*
* The list is process-local. With multiple replicas sharing one database,
* only the replica that handled the revocation rejects outstanding tokens
* immediately.
 */
type RevocationList struct {
	tombstones gcache.Cache
	clock      Clock
}

func NewRevocationList() *RevocationList {
	revocationList := new(RevocationList)
	revocationList.tombstones = gcache.New(revocationListSize).LRU().Build()
	revocationList.clock = RealClock{}
	return revocationList
}

func (rl *RevocationList) Revoke(userId string, clientId string) {
	err := rl.tombstones.SetWithExpire(revocationKey(userId, clientId), rl.clock.Now(), model.OneMonth.Duration())
	if err != nil {
		logger.Warnf("Was not able to store the tombstone for user %s and client %s. Err: %v", userId, clientId, err)
	}
}

func (rl *RevocationList) Clear(userId string, clientId string) {
	rl.tombstones.Remove(revocationKey(userId, clientId))
}

func (rl *RevocationList) IsRevoked(userId string, clientId string) bool {
	return rl.tombstones.Has(revocationKey(userId, clientId))
}

func revocationKey(userId string, clientId string) string {
	return fmt.Sprintf("%s:%s", userId, clientId)
}
