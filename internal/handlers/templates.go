package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/siteops-platform/api/internal/httpx"
)

func (s *Server) GetImportTemplate(w http.ResponseWriter, r *http.Request, typeName string) {
	normalized := strings.TrimSpace(typeName)
	content, ok := importTemplates[normalized]
	if !ok {
		httpx.WriteError(w, r, http.StatusNotFound, "template_not_found", "Import template not found", nil)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s-template.csv\"", normalized))
	_, _ = w.Write([]byte(content))
}

var importTemplates = map[string]string{
	"clients": strings.Join([]string{
		"recordId,companyName,contactName,email,phone,altPhone,address,startDate,isActive",
		"C-1001,Acme Paving,Pat Chavez,pat@acmepaving.com,512-555-0100,,100 Main St Austin TX,1/15/2024,Yes",
	}, "\n"),
	"employees": strings.Join([]string{
		"recordId,firstName,lastName,email,phone,role,hireDate,isScheduleActive",
		"E-2001,Jane,Doe,jane@example.com,512-555-0101,Foreman,3/4/2024,Yes",
	}, "\n"),
	"schedules": strings.Join([]string{
		"recordId,jobName,clientId,crew,startDate,endDate,notifyAssignees,isScheduleActive",
		"S-3001,FM 1625 Overlay,C-1001,Crew A,4/1/2026 7:00,4/3/2026 17:00,Yes,Yes",
	}, "\n"),
	"timesheets": strings.Join([]string{
		"recordId,employeeId,scheduleId,date,type,hours,distance,dumpWashout",
		"T-4001,E-2001,S-3001,4/1/2026,LABOR,8,,",
	}, "\n"),
	"jha": strings.Join([]string{
		"recordId,scheduleId,date,hazards,controls,isSubmitted",
		"J-5001,S-3001,4/1/2026,Traffic;Heat,Cones;Water breaks,Yes",
	}, "\n"),
	"djt": strings.Join([]string{
		"recordId,scheduleId,date,workPerformed,hoursWorked,isApproved",
		"D-6001,S-3001,4/1/2026,Milled and overlaid 1200 ft,9.5,No",
	}, "\n"),
	"receipts": strings.Join([]string{
		"recordId,vendor,date,amount,category,scheduleId",
		"R-7001,Fuel Depot,4/1/2026,$184.22,Fuel,S-3001",
	}, "\n"),
	"billingTickets": strings.Join([]string{
		"recordId,clientId,scheduleId,ticketDate,invoiceDate,description,quantity,rate,amount,isInvoiced",
		"B-8001,C-1001,S-3001,4/3/2026,4/10/2026,Hot mix asphalt,42.5,\"$118.00\",\"$5,015.00\",No",
	}, "\n"),
	"potholeLogs": strings.Join([]string{
		"recordId,scheduleId,date,location,length,width,depth",
		"P-9001,S-3001,4/2/2026,FM 1625 MM 4.2,36,24,3",
	}, "\n"),
}
