package domain

import "strings"

// Валюты котировки в порядке проверки суффикса.
// USDT первым: он самый частый и перекрывает хвосты вроде "...USD".
var QuoteCurrencies = []string{"USDT", "USDC", "BUSD", "BTC", "ETH", "BNB"}

// SplitPair разбирает "BTCUSDT" на базу и котировку по известным суффиксам.
// Для неизвестной котировки возвращает всю строку как базу и пустую котировку.
func SplitPair(pair string) (base, quote string) {
	for _, q := range QuoteCurrencies {
		if strings.HasSuffix(pair, q) && len(pair) > len(q) {
			return pair[:len(pair)-len(q)], q
		}
	}
	return pair, ""
}

// DisplayPair - человекочитаемый вид пары для кнопок и сообщений
func DisplayPair(pair string) string {
	base, quote := SplitPair(pair)
	if quote == "" {
		return pair
	}
	return base + "/" + quote
}

// PairSet - отслеживаемый набор пар. Строится один раз на старте,
// дальше только читается, поэтому замок не нужен.
type PairSet struct {
	ordered []string
	index   map[string]struct{}
}

func NewPairSet(pairs []string) PairSet {
	set := PairSet{index: make(map[string]struct{}, len(pairs))}
	for _, p := range pairs {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, dup := set.index[p]; dup {
			continue
		}
		set.index[p] = struct{}{}
		set.ordered = append(set.ordered, p)
	}
	return set
}

func (s PairSet) Tracks(pair string) bool {
	_, ok := s.index[pair]
	return ok
}

// Pairs возвращает пары в порядке объявления (порядок кнопок в меню)
func (s PairSet) Pairs() []string {
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

func (s PairSet) Len() int { return len(s.ordered) }
