package common

import "fmt"

const (
	solscanBaseURL  = "https://solscan.io"
	explorerBaseURL = "https://explorer.solana.com"
)

func SolscanTokenURL(mint string) string {
	return fmt.Sprintf("%s/token/%s", solscanBaseURL, mint)
}

func ExplorerAddressURL(address string) string {
	return fmt.Sprintf("%s/address/%s", explorerBaseURL, address)
}

func ExplorerTransactionURL(signature string) string {
	return fmt.Sprintf("%s/tx/%s", explorerBaseURL, signature)
}
