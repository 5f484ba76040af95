package status

// Icon 状态图标名
type Icon string

const (
	IconKey         Icon = "key"
	IconWifi        Icon = "wifi"
	IconCog         Icon = "cog"
	IconCheck       Icon = "check"
	IconExclamation Icon = "exclamation"
	IconQuestion    Icon = "question"
)

// Color 语义颜色
type Color string

const (
	ColorGrey  Color = "grey"  // neutral
	ColorGreen Color = "green" // success
	ColorRed   Color = "red"   // error
	ColorBlue  Color = "blue"  // info
)

// Presentation 状态在界面上的呈现，只由状态本身决定
type Presentation struct {
	Text    string `json:"text"`
	Icon    Icon   `json:"icon"`
	Color   Color  `json:"color"`
	Loading bool   `json:"loading"`
}

// Present 把状态映射为呈现方式，对所有变体都有定义
func Present(s TransactionStatus) Presentation {
	switch s.Kind {
	case Signing:
		return Presentation{Text: "signing", Icon: IconKey, Color: ColorGrey}
	case Sending:
		return Presentation{Text: "sending", Icon: IconWifi, Color: ColorGrey}
	case Broadcast:
		return Presentation{Text: "finalising", Icon: IconCog, Color: ColorGrey, Loading: true}
	case Finalised:
		return Presentation{Text: "finalised", Icon: IconCheck, Color: ColorGreen}
	case Failed:
		return Presentation{Text: "failed", Icon: IconExclamation, Color: ColorRed}
	default:
		return Presentation{Text: s.Raw, Icon: IconQuestion, Color: ColorBlue}
	}
}
