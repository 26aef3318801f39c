package nux

// Canned German copy used by the selector and the surrounding service.

// SystemPrompt instructs the text generator to answer in the NUX voice.
const SystemPrompt = `Du bist NUX, ein smarter KI-Assistent für Lead-Management und Vertrieb. Du hilfst Menschen dabei, ihre Leads zu reaktivieren und mehr Abschlüsse zu erzielen.

Wichtige Regeln:
- Sprich den Nutzer per Du an
- Sei locker, freundlich und direkt wie ein guter Kumpel
- NIEMALS Bindestriche in Sätzen verwenden
- Keine Formatierungen, keine Sternchen, keine Listen mit Strichen
- Antworte flexibel und individuell auf jede Nachricht
- Stelle Rückfragen wenn nötig
- Gib konkrete, umsetzbare Tipps
- Schreib wie ein Mensch, nicht wie ein Bot

Beispiel-Stil:
"Okay, verstehe. Wie viele alte Kontakte hast du denn ungefähr? Und woher kamen die ursprünglich?"

Antworte immer natürlich und flexibel, nie mit Standard-Phrasen.`

// Apology is shown when neither generation nor the scripted path produced text.
const Apology = "Entschuldigung, ich konnte keine Antwort generieren. Kannst du deine Frage anders formulieren?"

// Transcription failure texts.
const (
	TranscriptionNotConfigured = "Entschuldigung, die Spracherkennung ist nicht konfiguriert. Bitte tippe deine Nachricht."
	TranscriptionFailed        = "Entschuldigung, die Spracherkennung hat nicht funktioniert. Bitte versuche es nochmal oder tippe deine Nachricht."
)

// Suggestions are the conversation starters offered on an empty chat.
var Suggestions = []string{
	"Ich habe ein paar alte Leads, aber weiß nicht, was ich damit machen soll",
	"Ich will mehr Termine machen, aber niemand antwortet",
	"Ich habe gar keine Leads, will aber mit Vertrieb durchstarten",
	"Ich will einfach besser werden im Umsetzen",
}

const (
	autoIntro = `Hey! Ich bin NUX und helfe dir dabei, aus deinen alten Kontakten wieder richtige Leads zu machen.

Erzähl mir kurz: Wo stehst du gerade? Hast du schon Kontakte oder willst du komplett neu durchstarten?`

	reaktivierungGreeting = `Alles klar. Wie lange liegen die ungefähr schon unangerührt?

Und woher kamen die ursprünglich, Anzeigen, Empfehlungen oder was anderes?

Gib mir kurz das Bild, dann bauen wir direkt einen klaren Plan.`

	coachingGreeting = `Okay, dann bauen wir dich sauber auf. Sag mal: Wen willst du eigentlich erreichen?

Also Zielgruppe, wer genau? Sobald du das hast, helfe ich dir mit einem Starter-Plan für erste Leads in 7 Tagen.`

	umsetzungGreeting = `Sauber. Sag mir: Was hält dich aktuell noch davon ab, richtig Gas zu geben?

Fehlt dir Klarheit, Struktur oder einfach Motivation?

Je nachdem, wo du stehst, bekommst du von mir einen Wochenplan, ganz simpel und direkt machbar.`
)

const (
	askOldLeads = `Okay, verstehe. Wie viele alte Kontakte sind das ungefähr? Einfach schätzen reicht.

Je nachdem kann ich dir verschiedene Strategien zeigen.`

	askNewLeads = `Und wie viele neue Kontakte kommen bei dir so pro Monat rein?

Auch hier reicht eine grobe Schätzung.`

	askLeadSources = `Woher kommen deine Leads hauptsächlich? Facebook, Google, Immobilienportale oder eher über Empfehlungen?

Das ist wichtig für die richtige Reaktivierungs-Strategie.`

	askAutomation = `Letzte Frage: Nutzt du schon irgendwelche Automatisierungen für dein Follow-up? Also CRM, E-Mail-Sequenzen oder sowas?

Einfach ja oder nein reicht.`

	askTargetAudience = `Bevor wir loslegen: Wen genau willst du erreichen? Beschreib mir deine Zielgruppe in ein, zwei Sätzen.

Dann bekommst du von mir einen Starter-Plan für erste Leads in 7 Tagen.`

	askTime = `Wie viel Zeit willst du täglich investieren? 1 Stunde, 3 Stunden oder mehr?

Das bestimmt, welche Strategie am besten passt.`

	askExperience = `Hast du schon mal Anzeigen geschaltet oder Kaltakquise gemacht? Oder ist das komplettes Neuland?

Dann kann ich dir den richtigen Einstieg zeigen.`

	askObstacle = `Verstanden. Lass uns konkret werden: Was ist gerade dein größtes Hindernis, Zeit, Struktur oder Motivation?

Dann gebe ich dir einen klaren Wochenplan mit dem du heute noch anfangen kannst.`
)

const reaktivierungPlan = `Okay, hier ist deine Situation:

Du hast {{.Old}} alte Kontakte rumliegen und {{.New}} neue kommen pro Monat dazu. {{if .Automated}}Du nutzt schon Automatisierungen, das ist gut.{{else}}Du machst noch alles manuell.{{end}}

Lead-Quellen: {{.Sources}}

Hier ist das Potenzial: Aus deinen {{.Total}} Kontakten könntest du realistisch {{.Conversions}} Abschlüsse pro Monat machen. Das wären etwa {{.Revenue}} Euro Umsatz.

Dein 5-Schritte-Reaktivierungsplan:

1. Kontakte segmentieren
Teile deine {{.Old}} alten Kontakte in heiß, warm und kalt ein

2. Personalisierte Reaktivierung
Individuelle Nachrichten je nach letztem Kontakt

3. Multi-Channel nutzen
E-Mail, WhatsApp, Telefon kombinieren

4. Mehrwert bieten
Kostenlose Marktanalysen als Türöffner

5. Follow-up {{if .Automated}}optimieren
Deine bestehenden Systeme für bessere Conversion tunen{{else}}automatisieren
CRM einführen für systematisches Nachfassen{{end}}

Welchen Schritt willst du zuerst angehen?`

const coachingPlan = `Alright, hier ist dein {{if .Beginner}}Anfänger-freundlich{{else}}Fortgeschritten{{end}} 7-Tage-Starter-Plan:

Verfügbare Zeit: {{.Hours}} Stunden täglich
Zielgruppe: {{.Audience}}

Tag 1-2: Fundament legen
- Zielgruppe scharf definieren
- Avatar erstellen (Alter, Probleme, Wünsche)
- Erste Marktrecherche

Tag 3-4: Lead-Magnet erstellen
- Kostenloses Angebot entwickeln
- Landing Page aufsetzen
- Erste Inhalte produzieren

Tag 5-6: Erste Kampagne
- {{if .Beginner}}Facebook Ads für Einsteiger{{else}}Multi-Channel-Kampagne{{end}}
- Budget: 50-100 Euro für Tests
- Tracking einrichten

Tag 7: Optimierung & Skalierung
- Erste Ergebnisse auswerten
- Follow-up-System testen
- Nächste Schritte planen

Pro Tag brauchst du etwa {{.Hours}} Stunden. Machbar?

Womit willst du anfangen?`

const (
	zeitPlan = `Zeit-Optimierungs-Plan:

Dein Problem: Zu wenig Zeit für konsequente Umsetzung

Die Lösung: 90-Minuten-Blöcke

Morgen-Block (30 Min):
- 10 Min: Tagesplanung
- 20 Min: Wichtigste Aufgabe

Mittag-Block (30 Min):
- Follow-ups bearbeiten
- Termine vereinbaren

Abend-Block (30 Min):
- Nachbereitung
- Nächsten Tag vorbereiten

Das sind nur 90 Minuten täglich, aber konsequent. Schaffst du das?`

	strukturPlan = `Struktur-Plan für mehr Klarheit:

Dein Problem: Weißt nicht, was wann zu tun ist

Die Lösung: Wochenplan mit festen Zeiten

Montag: Lead-Generierung
Dienstag: Follow-ups
Mittwoch: Termine führen
Donnerstag: Nachbereitung & Planung
Freitag: Optimierung & Lernen

Jeden Tag gleiche Uhrzeiten, gleiche Abläufe. Routine schafft Erfolg.

Welchen Tag willst du zuerst strukturieren?`

	motivationPlan = `Motivations-System:

Dein Problem: Fängst an, hörst aber wieder auf

Die Lösung: Micro-Wins & Belohnungen

Tägliche Mini-Ziele:
- 5 Kontakte bearbeiten = 1 Punkt
- 1 Termin vereinbaren = 3 Punkte
- 1 Abschluss = 10 Punkte

Belohnungen:
- 10 Punkte = Lieblings-Essen
- 25 Punkte = Freier Abend
- 50 Punkte = Größere Belohnung

Plus: Tägliches 2-Minuten-Journal für Erfolge.

Klingt machbar?`
)

const segmentAdvice = `Alright, Schritt 1: Kontakte sortieren

Teile deine {{.Old}} Kontakte so auf:

Heiße Leads (etwa 20 Prozent)
Letzter Kontakt unter 3 Monaten, hatten konkretes Interesse
Aktion: Sofort anrufen

Warme Leads (etwa 30 Prozent)
Letzter Kontakt 3-12 Monate, grundsätzliches Interesse
Aktion: Personalisierte E-Mail plus Follow-up

Kalte Leads (etwa 50 Prozent)
Letzter Kontakt über 12 Monate, wenig Interaktion
Aktion: Mehrwert-Strategie mit kostenlosen Marktanalysen

Mit welcher Kategorie willst du anfangen?`

const messageAdvice = `Schritt 2: Personalisierte Reaktivierung

Hier ist ein Template für warme Leads:

"Hi [Name],

erinnerst du dich noch an unser Gespräch über [spezifisches Detail]?

Der Markt in [Gebiet] hat sich seitdem ziemlich entwickelt. Ich hab gerade eine Analyse gemacht, die für dich interessant sein könnte.

Hast du 10 Minuten für ein kurzes Update?

Grüße,
[Dein Name]"

Die wichtigsten Punkte:
- Letztes Gespräch erwähnen
- Aktueller Marktbezug
- Konkreter Mehrwert
- Einfacher Call-to-Action

Brauchst du Templates für die anderen Lead-Kategorien?`

const automationTuningAdvice = `Automation optimieren

Da du schon Automatisierungen nutzt, hier die wichtigsten Stellschrauben:

E-Mail-Sequenzen verbessern:
- Verschiedene Betreffzeilen testen
- Mehr Personalisierung (Name, Ort, Interesse)
- Follow-up-Timing anpassen (Tag 1, 3, 7, 14, 30)

Tracking optimieren:
- Öffnungsraten messen
- Klickraten analysieren
- Antwortquoten tracken

Segmentierung verfeinern:
- Nach Interesse aufteilen
- Nach Aktivität gruppieren
- Nach Kaufbereitschaft sortieren

Welchen Bereich willst du zuerst angehen?`

const crmAdvice = `CRM-System einführen

Für deine {{.Total}} Kontakte empfehle ich:

Einsteigerfreundliche Systeme:
- HubSpot (kostenlos für Basics)
- Pipedrive (speziell für Vertrieb)
- Monday.com (visuell und einfach)

Must-Have Features:
- Automatische Follow-up-Erinnerungen
- E-Mail-Integration
- Lead-Scoring
- Pipeline-Tracking

Erste Schritte:
1. Alle Kontakte importieren
2. Lead-Status definieren
3. Follow-up-Sequenzen einrichten
4. Erste Automatisierung testen

Soll ich dir bei der Auswahl helfen?`

const focusPrompt = `Das ist eine gute Frage.{{if .KnowsLeads}} Mit deinen {{.Old}} alten und {{.New}} neuen Kontakten kann ich dir gezielt helfen.{{end}}

Wähle deinen Fokus:

Sofortige Umsetzung - Konkrete Schritte für diese Woche
Langfristige Strategie - Systematischer Aufbau über 3 Monate
Automatisierung - Tools und Systeme einrichten
Conversion optimieren - Mehr Abschlüsse aus bestehenden Leads

Was ist für dich gerade am wichtigsten?`
