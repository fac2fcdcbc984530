package feed

import "crypto/sha256"

// Petnames are cosmetic default aliases for followed identities: a
// deterministic adjective-noun pair picked by the first two bytes of
// sha256(did). 64x64 labels means collisions across many follows are
// expected; petnames are never used for authentication.

var adjectives = [64]string{
	"amber", "azure", "bold", "bright", "calm", "clear", "cool", "coral",
	"crimson", "dark", "deep", "dry", "dusk", "faint", "fast", "firm",
	"gold", "green", "grey", "haze", "iron", "keen", "kind", "late",
	"light", "live", "long", "loud", "low", "mild", "mint", "mist",
	"moss", "near", "new", "next", "north", "odd", "old", "open",
	"pale", "pine", "plain", "proud", "pure", "quick", "quiet", "rare",
	"raw", "red", "rich", "sage", "salt", "sand", "sharp", "shy",
	"silk", "slim", "slow", "soft", "south", "steel", "still", "stone",
}

var nouns = [64]string{
	"ash", "bay", "birch", "bloom", "brook", "cave", "cedar", "cliff",
	"cloud", "coal", "cove", "crane", "creek", "crow", "dawn", "deer",
	"dove", "dune", "dusk", "eagle", "elm", "ember", "fern", "finch",
	"fire", "flint", "fox", "frost", "gale", "glen", "grove", "hawk",
	"haze", "heath", "heron", "hill", "ivy", "jade", "jay", "lake",
	"lark", "leaf", "marsh", "mesa", "moon", "oak", "owl", "peak",
	"pine", "pond", "rain", "reed", "ridge", "rock", "rose", "sage",
	"shade", "shore", "sky", "snow", "star", "storm", "stone", "vale",
}

// Petname returns the deterministic adjective-noun label for a DID.
func Petname(did string) string {
	h := sha256.Sum256([]byte(did))
	return adjectives[h[0]%64] + "-" + nouns[h[1]%64]
}
