package broker

import (
	"fmt"
	"strings"
)

// ResolveTickerToUID finds the instrument UID for a ticker. An exact ticker
// match wins; otherwise the search must be unambiguous.
func (bc *BrokerClient) ResolveTickerToUID(ticker string) (string, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if cached, ok := bc.uids.Load(ticker); ok {
		return cached.(string), nil
	}

	resp, err := bc.Client.NewInstrumentsServiceClient().FindInstrument(ticker)
	if err != nil {
		return "", fmt.Errorf("find instrument %s: %w", ticker, err)
	}

	found := resp.GetInstruments()
	uid := ""
	for _, inst := range found {
		if strings.EqualFold(inst.GetTicker(), ticker) {
			uid = inst.GetUid()
			break
		}
	}
	if uid == "" && len(found) == 1 {
		uid = found[0].GetUid()
	}
	if uid == "" {
		return "", fmt.Errorf("instrument %s: %d candidates, none matches the ticker", ticker, len(found))
	}

	bc.Logger.Debug("instrument resolved", "ticker", ticker, "uid", uid)
	bc.uids.Store(ticker, uid)
	return uid, nil
}
