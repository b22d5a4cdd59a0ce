package knowledge

// SeedDocuments returns the starter corpus loaded into an empty index.
func SeedDocuments() []Document {
	return []Document{
		{
			Content: "Sinh viên Công nghệ thông tin thường có điểm mạnh trong tư duy logic, giải quyết vấn đề và làm việc với công nghệ. Các lĩnh vực phát triển bao gồm: Phát triển phần mềm, An ninh mạng, Khoa học dữ liệu, AI/ML, DevOps.",
			Metadata: Metadata{
				Department: "Công nghệ thông tin",
				Type:       TypeStrengthAnalysis,
				Keywords:   []string{"CNTT", "programming", "logic"},
			},
		},
		{
			Content: "Sinh viên Kinh tế thường có điểm mạnh trong phân tích, giao tiếp và hiểu biết thị trường. Định hướng nghề nghiệp: Phân tích tài chính, Marketing, Tư vấn kinh doanh, Quản lý dự án, Ngân hàng.",
			Metadata: Metadata{
				Department: "Kinh tế",
				Type:       TypeCareerGuidance,
				Keywords:   []string{"economics", "business", "finance"},
			},
		},
		{
			Content: "Kỹ năng quản lý thời gian kém (dưới 60%) thường dẫn đến stress học tập và hiệu suất thấp. Giải pháp: Sử dụng Pomodoro Technique, lập kế hoạch hàng tuần, ưu tiên việc quan trọng.",
			Metadata: Metadata{
				Skill: "Quan_ly_thoi_gian",
				Type:  TypeImprovementStrategy,
				Level: "foundational",
			},
		},
		{
			Content: "Sinh viên có điểm tư duy phản biện cao (trên 80%) thường thành công trong các ngành yêu cầu phân tích sâu: Nghiên cứu, Tư vấn, Luật, Y khoa, Báo chí điều tra.",
			Metadata: Metadata{
				Skill: "Tu_duy_phan_bien",
				Type:  TypeCareerMapping,
				Level: "proficient",
			},
		},
		{
			Content: "Hệ thống điểm Việt Nam: A+ (9.5-10), A (8.5-9.4), B+ (7.8-8.4), B (7.0-7.7), C+ (6.5-6.9), C (5.5-6.4), D+ (4.5-5.4), D (4.0-4.4), F (<4.0). Điểm B+ trở lên được coi là thành tích tốt.",
			Metadata: Metadata{
				Type:     TypeGradingSystem,
				Context:  "vietnamese_education",
				Keywords: []string{"grading", "assessment"},
			},
		},
		{
			Content: "Sinh viên có kỹ năng làm việc nhóm tốt (trên 75%) thường phù hợp với vai trò: Team Lead, Project Manager, Scrum Master, Sales, HR, Giảng dạy.",
			Metadata: Metadata{
				Skill: "Hop_tac_nhom",
				Type:  TypeCareerMapping,
				Level: "developing",
			},
		},
		{
			Content: "Môi trường học tập kém ảnh hưởng trực tiếp đến kết quả học tập. Giải pháp: Tìm không gian yên tĩnh, loại bỏ yếu tố phân tâm, tham gia study group, sử dụng thư viện.",
			Metadata: Metadata{
				Skill:    "Moi_truong_hoc_tap",
				Type:     TypeImprovementStrategy,
				Keywords: []string{"environment", "study_space"},
			},
		},
		{
			Content: "Việc sử dụng mạng xã hội quá mức (trên 4 giờ/ngày) có thể ảnh hưởng tiêu cực đến học tập. Cần cân bằng và sử dụng có mục đích cho việc học.",
			Metadata: Metadata{
				Skill:    "Su_dung_mang_xa_hoi",
				Type:     TypeBalanceStrategy,
				Keywords: []string{"social_media", "digital_balance"},
			},
		},
	}
}
