package genre

import "regexp"

// Genre names that other code branches on.
const (
	GenreRamen   = "ラーメン"
	GenreDefault = "飲食店"
)

// Google place types used as search filters and fallback classification tags.
const (
	TypeRestaurant = "restaurant"
	TypeCafe       = "cafe"
	TypeBar        = "bar"
	TypeBakery     = "bakery"
)

type subGenreRule struct {
	pattern  *regexp.Regexp
	subGenre string
	keywords []string
}

// ramenSubGenres is only consulted once the main genre is ラーメン.
var ramenSubGenres = []subGenreRule{
	{regexp.MustCompile(`家系|横浜家系`), "家系", []string{"家系ラーメン", "家系"}},
	{regexp.MustCompile(`二郎|ジロウ|じろう|インスパイア`), "二郎系", []string{"二郎系ラーメン", "二郎"}},
	{regexp.MustCompile(`つけ麺|つけめん|つけそば`), "つけ麺", []string{"つけ麺"}},
	{regexp.MustCompile(`豚骨|とんこつ|博多|長浜`), "豚骨", []string{"豚骨ラーメン", "豚骨"}},
	{regexp.MustCompile(`味噌|みそ`), "味噌", []string{"味噌ラーメン"}},
	{regexp.MustCompile(`担々|担担|タンタン`), "担々麺", []string{"担々麺"}},
	{regexp.MustCompile(`油そば|まぜそば|汁なし|油組`), "油そば・まぜそば", []string{"油そば", "まぜそば"}},
	{regexp.MustCompile(`中華そば|支那そば`), "中華そば", []string{"中華そば", "ラーメン"}},
	{regexp.MustCompile(`煮干|にぼし`), "煮干し", []string{"煮干しラーメン", "ラーメン"}},
	{regexp.MustCompile(`鶏白湯|鳥白湯|とりぱいたん|鶏パイタン`), "鶏白湯", []string{"鶏白湯ラーメン", "ラーメン"}},
	{regexp.MustCompile(`塩ラーメン|しおらーめん`), "塩", []string{"塩ラーメン", "ラーメン"}},
}

type mainGenreRule struct {
	pattern    *regexp.Regexp
	mainGenre  string
	keyword    string
	googleType string
	label      string
}

var mainGenres = []mainGenreRule{
	{regexp.MustCompile(`ラーメン|らーめん|拉麺|家系|二郎|つけ麺|つけめん|中華そば|油そば|まぜそば|油組`), GenreRamen, "ラーメン", TypeRestaurant, "ラーメン店"},
	{regexp.MustCompile(`そば|蕎麦|うどん`), "そば・うどん", "そば うどん", TypeRestaurant, "そば・うどん店"},
	{regexp.MustCompile(`寿司|鮨|すし`), "寿司", "寿司", TypeRestaurant, "寿司店"},
	{regexp.MustCompile(`焼肉|焼き肉|ホルモン|牛タン`), "焼肉", "焼肉", TypeRestaurant, "焼肉店"},
	{regexp.MustCompile(`(?i)カフェ|cafe|珈琲|コーヒー|喫茶`), "カフェ", "カフェ", TypeCafe, "カフェ"},
	{regexp.MustCompile(`バー|bar|BAR|スナック`), "バー", "バー", TypeBar, "バー"},
	{regexp.MustCompile(`居酒屋|酒場|酒処`), "居酒屋", "居酒屋", TypeRestaurant, "居酒屋"},
	{regexp.MustCompile(`(?i)カレー|curry`), "カレー", "カレー", TypeRestaurant, "カレー店"},
	{regexp.MustCompile(`(?i)パン|ベーカリー|bakery`), "ベーカリー", "パン ベーカリー", TypeBakery, "ベーカリー"},
	{regexp.MustCompile(`イタリアン|パスタ|ピザ|ピッツァ`), "イタリアン", "イタリアン", TypeRestaurant, "イタリアン"},
	{regexp.MustCompile(`中華|中国料理`), "中華", "中華料理", TypeRestaurant, "中華料理店"},
	{regexp.MustCompile(`フレンチ|フランス料理|ビストロ`), "フレンチ", "フレンチ", TypeRestaurant, "フレンチ"},
	{regexp.MustCompile(`天ぷら|天麩羅`), "天ぷら", "天ぷら", TypeRestaurant, "天ぷら店"},
	{regexp.MustCompile(`とんかつ|トンカツ|豚カツ|カツ`), "とんかつ", "とんかつ", TypeRestaurant, "とんかつ店"},
	{regexp.MustCompile(`焼き鳥|焼鳥|やきとり`), "焼き鳥", "焼き鳥", TypeRestaurant, "焼き鳥店"},
	{regexp.MustCompile(`ハンバーガー|バーガー`), "ハンバーガー", "ハンバーガー", TypeRestaurant, "ハンバーガー店"},
	{regexp.MustCompile(`タイ料理|タイ`), "タイ料理", "タイ料理", TypeRestaurant, "タイ料理店"},
	{regexp.MustCompile(`インド|ナン`), "インド料理", "インド料理", TypeRestaurant, "インド料理店"},
	{regexp.MustCompile(`韓国|キムチ|サムギョプサル`), "韓国料理", "韓国料理", TypeRestaurant, "韓国料理店"},
}

// typeFallbacks maps Google place types to a main genre when the name alone
// is inconclusive. Checked in order.
var typeFallbacks = []struct {
	placeType string
	mainGenre string
}{
	{TypeCafe, "カフェ"},
	{TypeBar, "バー"},
	{TypeBakery, "ベーカリー"},
}

type chainRule struct {
	pattern   *regexp.Regexp
	chainName string
	// mainGenre is the cuisine the brand is known for; empty when the brand
	// spans genres with no rule of its own.
	mainGenre string
}

var knownChains = []chainRule{
	// ramen
	{regexp.MustCompile(`一蘭`), "一蘭", GenreRamen},
	{regexp.MustCompile(`一風堂`), "一風堂", GenreRamen},
	{regexp.MustCompile(`天下一品`), "天下一品", GenreRamen},
	{regexp.MustCompile(`日高屋`), "日高屋", GenreRamen},
	{regexp.MustCompile(`幸楽苑`), "幸楽苑", GenreRamen},
	{regexp.MustCompile(`来来亭`), "来来亭", GenreRamen},
	{regexp.MustCompile(`丸源`), "丸源ラーメン", GenreRamen},
	{regexp.MustCompile(`(?i)スガキヤ|sugakiya`), "スガキヤ", GenreRamen},
	{regexp.MustCompile(`魁力屋`), "魁力屋", GenreRamen},
	{regexp.MustCompile(`山岡家`), "山岡家", GenreRamen},
	{regexp.MustCompile(`町田商店`), "町田商店", GenreRamen},
	{regexp.MustCompile(`横浜家系ラーメン壱角家`), "壱角家", GenreRamen},
	{regexp.MustCompile(`壱角家`), "壱角家", GenreRamen},
	{regexp.MustCompile(`らあめん花月嵐|花月嵐`), "花月嵐", GenreRamen},
	{regexp.MustCompile(`餃子の王将`), "餃子の王将", "中華"},
	{regexp.MustCompile(`大阪王将`), "大阪王将", "中華"},
	{regexp.MustCompile(`リンガーハット`), "リンガーハット", "中華"},
	{regexp.MustCompile(`バーミヤン`), "バーミヤン", "中華"},
	// cafe
	{regexp.MustCompile(`(?i)スターバックス|starbucks`), "スターバックス", "カフェ"},
	{regexp.MustCompile(`ドトール`), "ドトール", "カフェ"},
	{regexp.MustCompile(`コメダ`), "コメダ珈琲", "カフェ"},
	{regexp.MustCompile(`(?i)タリーズ|tully`), "タリーズ", "カフェ"},
	{regexp.MustCompile(`サンマルク`), "サンマルクカフェ", "カフェ"},
	{regexp.MustCompile(`ベローチェ`), "ベローチェ", "カフェ"},
	// fast food
	{regexp.MustCompile(`(?i)マクドナルド|mcdonald`), "マクドナルド", "ハンバーガー"},
	{regexp.MustCompile(`モスバーガー`), "モスバーガー", "ハンバーガー"},
	{regexp.MustCompile(`(?i)ケンタッキー|KFC`), "ケンタッキー", ""},
	// gyudon and teishoku
	{regexp.MustCompile(`吉野家`), "吉野家", ""},
	{regexp.MustCompile(`松屋`), "松屋", ""},
	{regexp.MustCompile(`すき家`), "すき家", ""},
	{regexp.MustCompile(`やよい軒`), "やよい軒", ""},
	{regexp.MustCompile(`大戸屋`), "大戸屋", ""},
	// conveyor-belt sushi
	{regexp.MustCompile(`(?i)スシロー|sushiro`), "スシロー", "寿司"},
	{regexp.MustCompile(`くら寿司`), "くら寿司", "寿司"},
	{regexp.MustCompile(`はま寿司`), "はま寿司", "寿司"},
	{regexp.MustCompile(`かっぱ寿司`), "かっぱ寿司", "寿司"},
	// yakiniku
	{regexp.MustCompile(`牛角`), "牛角", "焼肉"},
	{regexp.MustCompile(`焼肉きんぐ`), "焼肉きんぐ", "焼肉"},
	{regexp.MustCompile(`安楽亭`), "安楽亭", "焼肉"},
	// izakaya
	{regexp.MustCompile(`鳥貴族`), "鳥貴族", "焼き鳥"},
	{regexp.MustCompile(`磯丸水産`), "磯丸水産", "居酒屋"},
	{regexp.MustCompile(`串カツ田中`), "串カツ田中", "居酒屋"},
	{regexp.MustCompile(`塚田農場`), "塚田農場", "居酒屋"},
	{regexp.MustCompile(`和民|ワタミ`), "ワタミ", "居酒屋"},
	{regexp.MustCompile(`白木屋`), "白木屋", "居酒屋"},
	{regexp.MustCompile(`笑笑`), "笑笑", "居酒屋"},
	// curry
	{regexp.MustCompile(`(?i)CoCo壱番屋|ココイチ|coco壱`), "CoCo壱番屋", "カレー"},
	// udon
	{regexp.MustCompile(`丸亀製麺`), "丸亀製麺", "そば・うどん"},
	{regexp.MustCompile(`はなまるうどん`), "はなまるうどん", "そば・うどん"},
}

// chainStructuralPatterns recognise names shaped like a branch of a chain
// ("〇〇 渋谷店", "3号店"). A match is a weak signal and never marks a
// store as a chain on its own.
var chainStructuralPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[\s\x{3000}]+.{2,8}店$`),
	regexp.MustCompile(`\d+号店`),
}

func lookupMainGenre(name string) (mainGenreRule, bool) {
	for _, g := range mainGenres {
		if g.mainGenre == name {
			return g, true
		}
	}
	return mainGenreRule{}, false
}
