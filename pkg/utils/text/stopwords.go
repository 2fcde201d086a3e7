// ABOUTME: Stopword lists per language for keyword extraction
// ABOUTME: Languages reports which languages have a list

package text

import "strings"

var stopwords = map[string]map[string]struct{}{
	"en": wordSet(`a about above after again against all also am an and any are as at be because been before being
		below between both but by can could did do does doing down during each few for from further had has have
		having he her here hers herself him himself his how i if in into is it its itself just me more most my
		myself new no nor not now of off on once only or other our ours ourselves out over own said same says she
		should so some such than that the their theirs them themselves then there these they this those through
		to too under until up very was we were what when where which while who whom why will with would you your
		yours yourself yourselves amid amidst via`),
	"de": wordSet(`aber alle allem allen aller alles als also am an ander andere anderem anderen anderer anderes auch
		auf aus bei bin bis bist da damit dann das dass dein deine dem den der des dessen dich dir doch dort du durch
		ein eine einem einen einer eines er es etwas euer eure für gegen gewesen hab habe haben hat hatte hier hin
		hinter ich ihm ihn ihr ihre im in ist ja jede jedem jeden jeder jedes jetzt kann kein keine können man mein
		meine mich mir mit muss nach nicht nichts noch nun nur ob oder ohne sehr sein seine sich sie sind so solche
		soll sondern über um und uns unser unter viel vom von vor war waren was weg weil weiter welche wenn wer wie
		wieder will wir wird wo zu zum zur zwar zwischen`),
	"fr": wordSet(`a afin ai aie alors au aucun aussi autre aux avec avoir bon car ce cela celle celui ces cet cette ceux
		chaque ci comme comment dans de des du donc dont elle elles en encore est et été être eu fait faire il ils je
		la le les leur leurs lui ma mais me même mes moi mon ne ni nos notre nous on ont ou où par pas peu peut plus
		pour pourquoi qu quand que quel quelle quels qui sa sans se selon ses si son sont sous sur ta te tes toi ton
		tous tout tous toute toutes très tu un une vers vos votre vous y après avant entre depuis contre`),
	"es": wordSet(`a al algo algunas algunos ante antes como con contra cual cuando de del desde donde durante e el
		ella ellas ellos en entre era es esa esas ese eso esos esta estaba estas este esto estos fue fueron ha han
		hasta hay la las le les lo los más me mi mientras muy nada ni no nos o os otra otro para pero poco por porque
		que quien se sea ser si sido sin sobre son su sus también tanto te tiene todo todos tras tu un una unas uno
		unos y ya yo según`),
	"it": wordSet(`a ad al alla alle allo agli ai anche ancora che chi ci come con contro da dal dalla dalle dei del
		della delle dello degli di dopo dove e ed era è gli ha hanno i il in io la le lei lo loro lui ma mi ne nei nel
		nella nelle nello negli noi non o per perché più poi quale quando quella quelle quello questa queste questo se
		si sia sono su sua sue suo suoi sul sulla tra tu tutti tutto un una uno voi già`),
	"pt": wordSet(`a ao aos as até com como da das de dela dele deles do dos e ela elas ele eles em entre era essa esse
		esta este eu foi foram há isso isto já la lhe mais mas me mesmo meu minha muito na nas nem no nos nós o os ou
		para pela pelas pelo pelos por qual quando que quem se sem ser seu seus sua suas também te tem teu um uma umas
		uns você após sobre contra`),
	"nl": wordSet(`aan al alles als altijd andere ben bij daar dan dat de der deze die dit doch doen door dus een en er
		ge geen geweest haar had heb hebben heeft hem het hier hij hoe hun iemand iets ik in is ja je kan kon kunnen
		maar me meer men met mij mijn moet na naar niet niets nog nu of om omdat onder ons ook op over reeds te tegen
		toch toen tot u uit uw van veel voor want waren was wat we wel werd wezen wie wil worden wordt zal ze zelf zich
		zij zijn zo zonder zou`),
	"sv": wordSet(`och det att i en jag hon som han på den med var sig för så till är men ett om hade de av icke mig du
		henne då sin nu har inte hans honom skulle hennes där min man ej vid kunde något från ut när efter upp vi dem
		vara vad över än dig kan sina här ha mot alla under någon eller allt mycket sedan ju denna själv detta åt utan
		varit hur ingen mitt ni bli blev oss din dessa några deras blir mina samma vilken er sådan vår blivit dess inom
		mellan sådant varför varje vilka ditt vem vilket sitta sådana vart dina vars vårt våra ert era vilkas`),
	"ru": wordSet(`и в во не что он на я с со как а то все она так его но да ты к у же вы за бы по только ее мне было
		вот от меня еще нет о из ему теперь когда даже ну вдруг ли если уже или ни быть был него до вас нибудь опять уж
		вам ведь там потом себя ничего ей может они тут где есть надо ней для мы тебя их чем была сам чтоб без будто
		чего раз тоже себе под будет ж тогда кто этот того потому этого какой совсем ним здесь этом один почти мой тем
		чтобы нее сейчас были куда зачем всех никогда можно при наконец два об другой хоть после над больше тот через
		эти нас про всего них какая много разве три эту моя впрочем хорошо свою этой перед иногда лучше чуть том нельзя
		такой им более всегда конечно всю между`),
}

var allStopwords = func() map[string]struct{} {
	all := make(map[string]struct{})
	for _, set := range stopwords {
		for w := range set {
			all[w] = struct{}{}
		}
	}
	return all
}()

func wordSet(words string) map[string]struct{} {
	fields := strings.Fields(words)
	set := make(map[string]struct{}, len(fields))
	for _, w := range fields {
		set[w] = struct{}{}
	}
	return set
}

// Languages lists the language codes with a stopword set
func Languages() []string {
	langs := make([]string, 0, len(stopwords))
	for lang := range stopwords {
		langs = append(langs, lang)
	}
	return langs
}
