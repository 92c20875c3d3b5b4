package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const tokenABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

const saleABIJSON = `[
	{"type":"function","name":"pricePerShare","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalShares","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"sharesSold","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"saleActive","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"buyShares","stateMutability":"payable","inputs":[{"name":"shareAmount","type":"uint256"}],"outputs":[]}
]`

const distributorABIJSON = `[
	{"type":"function","name":"getDistributionCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"hasClaimed","stateMutability":"view","inputs":[{"name":"distributionId","type":"uint256"},{"name":"holder","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getClaimableDividend","stateMutability":"view","inputs":[{"name":"distributionId","type":"uint256"},{"name":"holder","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"createDistribution","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"claimDividend","stateMutability":"nonpayable","inputs":[{"name":"distributionId","type":"uint256"}],"outputs":[]}
]`

var (
	tokenABI       = mustParseABI(tokenABIJSON)
	saleABI        = mustParseABI(saleABIJSON)
	distributorABI = mustParseABI(distributorABIJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic("ledger: invalid ABI: " + err.Error())
	}
	return parsed
}
