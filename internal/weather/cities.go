package weather

import "strings"

// koreanCities maps Korean city names to the English names OpenWeatherMap
// resolves without ambiguity.
var koreanCities = map[string]string{
	"서울":  "Seoul",
	"부산":  "Busan",
	"대구":  "Daegu",
	"인천":  "Incheon",
	"광주":  "Gwangju",
	"대전":  "Daejeon",
	"울산":  "Ulsan",
	"수원":  "Suwon",
	"창원":  "Changwon",
	"고양":  "Goyang",
	"용인":  "Yongin",
	"청주":  "Cheongju",
	"안산":  "Ansan",
	"전주":  "Jeonju",
	"천안":  "Cheonan",
	"남양주": "Namyangju",
	"화성":  "Hwaseong",
	"부천":  "Bucheon",
	"포항":  "Pohang",
	"평택":  "Pyeongtaek",
	"제주":  "Jeju",
	"시흥":  "Siheung",
	"파주":  "Paju",
	"김해":  "Gimhae",
	"의정부": "Uijeongbu",
	"김포":  "Gimpo",
	"양산":  "Yangsan",
	"구리":  "Guri",
	"양주":  "Yangju",
	"안양":  "Anyang",
}

// citySuffixes are stripped before lookup ("서울시" -> "서울").
var citySuffixes = []string{"특별시", "광역시", "특별자치시", "특별자치도", "시"}

// CityQuery returns the API query for location: the English name for a
// known Korean city, otherwise the trimmed input.
func CityQuery(location string) string {
	loc := strings.TrimSpace(location)
	if en, ok := koreanCities[loc]; ok {
		return en
	}
	for _, suffix := range citySuffixes {
		if base, ok := strings.CutSuffix(loc, suffix); ok {
			if en, ok := koreanCities[base]; ok {
				return en
			}
		}
	}
	return loc
}
