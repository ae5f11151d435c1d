package config

import "strings"

// KnownAddress is a statically labeled on-chain address. The static table
// never expires and always wins over cached or remote lookups.
type KnownAddress struct {
	Label    string
	Category string // "exchange" | "contract" | "wallet"
}

var knownAddresses = map[string]KnownAddress{
	// Uniswap V3 pools
	"0x4e68ccd3e89f51c3074ca5072bbac773960dfa36": {"UniswapV3Pool", "contract"},
	"0x11b815efb8f581194ae79006d24e0d814b7697f6": {"UniswapV3Pool", "contract"},
	"0xc7bbec68d12a0d1830360f8ec58fa599ba1b0e9b": {"UniswapV3Pool", "contract"},
	"0x33676385160f9d8f03a0db2821029882f7c79e93": {"UniswapV3Pool", "contract"},

	// Aave V3
	"0x87870bca3f3fd6335c3f4ce8392d69350b4fa4e2": {"AaveV3Pool", "contract"},
	"0x794a61358d6845594f94dc1db02a252b5b4814ad": {"AaveV3Pool", "contract"},

	// Compound V3
	"0xc3d688b66703497daa19211eedff47f25384cdc3": {"CompoundV3", "contract"},
	"0xa17581a9e3356d9a858b789d68b4d866e593ae94": {"CompoundV3", "contract"},

	// Curve
	"0xbebc44782c7db0a1a60cb6fe97d0b483032ff1c7": {"Curve3Pool", "contract"},
	"0xa5407eae9ba41422680e2e00537571bcc53efbfd": {"CurvePool", "contract"},

	// Binance hot wallets
	"0x28c6c06298d514db089934071355e5743bf21d60": {"Binance", "exchange"},
	"0x21a31ee1afc51d94c2efccaa2092ad1028285549": {"Binance", "exchange"},
	"0xdfd5293d8e347dfe59e90efd55b2956a1343963d": {"Binance", "exchange"},
	"0x564286362092d8e7936f0549571a803b203aaced": {"Binance", "exchange"},
	"0x0681d8db095565fe8a346fa0277bffde9c0edbbf": {"Binance", "exchange"},
	"0xf977814e90da44bfa03b6295a0616a897441acec": {"Binance", "exchange"},
	"0x8894e0a0c962cb723c1976a4421c95949be2d4e3": {"Binance", "exchange"},
	"0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be": {"Binance", "exchange"},

	// Coinbase
	"0x71660c4005ba85c37ccec55d0c4493e66fe775d3": {"Coinbase", "exchange"},
	"0x503828976d22510aad0201ac7ec88293211d23da": {"Coinbase", "exchange"},
	"0xddfabcdc4d8ffc6d5beaf154f18b778f892a0740": {"Coinbase", "exchange"},
	"0x3cd751e6b0078be393132286c442345e5dc49699": {"Coinbase", "exchange"},

	// Other exchanges
	"0x6cc5f688a315f3dc28a7781717a9a798a59fda7b": {"OKX", "exchange"},
	"0x2b5634c42055806a59e9107ed44d43c426e58258": {"KuCoin", "exchange"},
	"0xe853c56864a2ebe4576a807d26fdc4a0ada51919": {"Kraken", "exchange"},
}

// LookupKnownAddress returns the static label for an address, if one exists.
// Matching is case-insensitive.
func LookupKnownAddress(address string) (KnownAddress, bool) {
	ka, ok := knownAddresses[strings.ToLower(address)]
	return ka, ok
}
