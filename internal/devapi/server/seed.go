package server

import (
	"time"

	"github.com/combatwarrior/academy/internal/academy"
)

type seedRecord struct {
	entity string
	body   string
}

var demoRecords = []seedRecord{
	{"courses", `{"title":"Little Dragons","category":"kids","level":"beginner","price":79,"schedule":"Mon/Wed 16:00","instructor":"Master Kim","maxStudents":16,"features":["Age 5-8","Focus drills","Belt testing"],"isActive":true}`},
	{"courses", `{"title":"Adult Taekwondo","category":"taekwondo","level":"all","price":99,"schedule":"Tue/Thu 19:00","instructor":"Master Kim","maxStudents":24,"features":["Forms","Sparring","Self defence"],"isActive":true}`},
	{"courses", `{"title":"Competition Team","category":"sparring","level":"advanced","price":129,"features":["Tournament prep"],"isActive":false}`},
	{"students", `{"firstName":"Min-jun","lastName":"Lee","email":"minjun.lee@example.com","dateOfBirth":"2014-06-02","beltLevel":"green","course":"Little Dragons"}`},
	{"students", `{"firstName":"Sofia","lastName":"Garcia","email":"sofia.garcia@example.com","dateOfBirth":"1995-11-20","beltLevel":"blue","course":"Adult Taekwondo"}`},
	{"students", `{"firstName":"Noah","lastName":"Brown","email":"noah.brown@example.com","dateOfBirth":"2016-02-29","beltLevel":"white","status":"inactive"}`},
	{"achievements", `{"title":"Perfect Month","category":"attendance","points":50,"criteria":{"type":"attendance","count":12},"isActive":true}`},
	{"badges", `{"name":"First Board Break","rarity":"common","color":"#c0392b","criteria":{"type":"manual"}}`},
	{"certificate-templates", `{"name":"Belt Promotion","type":"belt","styling":{"primaryColor":"#1a2b3c","secondaryColor":"#d4af37","fontFamily":"Georgia"},"fields":["studentName","beltLevel","date"],"isActive":true}`},
	{"certificates", `{"studentId":"demo","studentName":"Sofia Garcia","title":"Blue Belt","beltLevel":"blue"}`},
	{"attendance", `{"studentId":"demo","date":"2025-03-03","status":"present"}`},
	{"belt-promotions", `{"studentId":"demo","fromBelt":"green","toBelt":"blue","date":"2025-02-15","examiner":"Master Kim"}`},
	{"fees", `{"studentId":"demo","amount":99,"dueDate":"2025-03-01","paidDate":"2025-02-27","method":"card","status":"paid"}`},
	{"fees", `{"studentId":"demo","amount":79,"dueDate":"2025-03-01","status":"overdue"}`},
	{"admissions", `{"firstName":"Ava","lastName":"Nguyen","email":"ava.nguyen@example.com","phone":"555-0142","dateOfBirth":"2013-09-09","course":"Little Dragons"}`},
	{"contacts", `{"name":"Daniel Park","email":"daniel.park@example.com","subject":"Trial class","message":"Do you offer a free trial class for adults?"}`},
}

// seed loads the demo records through the same checks as API writes.
func (s *APIServer) seed() error {
	now := time.Now()
	for _, d := range demoRecords {
		e, err := academy.Lookup(d.entity)
		if err != nil {
			return err
		}
		doc, err := s.prepare(e, []byte(d.body), nil, now)
		if err != nil {
			return err
		}
		if _, err := s.store.Insert(e.Descriptor.Path, doc); err != nil {
			return err
		}
	}
	return nil
}
