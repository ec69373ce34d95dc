package artifact

// 内置产物类型。后缀沿用既有缓存目录中的文件名，改动会导致旧条目失效。
var (
	Article = Kind{
		Name:        "article",
		Suffix:      "a",
		Description: "rendered article body",
		Evictable:   true,
	}
	Image = Kind{
		Name:        "image",
		Suffix:      "i",
		Description: "downloaded article image",
		Evictable:   true,
	}
	ImageGroup = Kind{
		Name:        "image-group",
		Suffix:      "mi",
		Description: "serialized list of images referenced by an article",
		Evictable:   true,
	}
	Classified = Kind{
		Name:        "classified",
		Suffix:      "cf",
		Description: "rendered classified ads page",
		Evictable:   true,
	}
	Section = Kind{
		Name:        "section",
		Suffix:      "s",
		Description: "rendered section front page",
	}
	Menu = Kind{
		Name:        "menu",
		Suffix:      "m",
		Description: "rendered navigation menu",
	}
)

func init() {
	for _, kind := range []Kind{Article, Image, ImageGroup, Classified, Section, Menu} {
		MustRegister(kind)
	}
}
